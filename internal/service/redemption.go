package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmeshcher/offer-system/internal/engagement"
	"github.com/mmeshcher/offer-system/internal/model"
	"github.com/mmeshcher/offer-system/internal/redemption"
)

// Challenge содержит код погашения, который пользователь показывает сотруднику ресторана.
type Challenge struct {
	OfferID uuid.UUID
	UserID  int64
	Payload string
}

// Verification содержит результат проверки отсканированного кода.
type Verification struct {
	OfferID    uuid.UUID
	OfferTitle string
	Restaurant string
	UserID     int64
	IsActive   bool
	// Pending означает, что код ещё можно подтвердить: предложение активно и не использовано пользователем.
	Pending bool
}

// StartRedemption формирует код погашения для доступного предложения. Состояние не меняется.
func (s *Service) StartRedemption(ctx context.Context, userID int64, offerID uuid.UUID) (*Challenge, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if err := engagement.CheckClaim(user, offer); err != nil {
		return nil, err
	}

	return &Challenge{
		OfferID: offerID,
		UserID:  userID,
		Payload: s.codec.Encode(offerID, userID),
	}, nil
}

// ConfirmRedemption подтверждает погашение по коду. Код должен принадлежать вызывающему пользователю.
func (s *Service) ConfirmRedemption(ctx context.Context, userID int64, payload string) (uuid.UUID, error) {
	offerID, codeUserID, err := s.decode(payload)
	if err != nil {
		return uuid.Nil, err
	}

	if codeUserID != userID {
		return uuid.Nil, model.ErrForbidden
	}

	if err := s.Claim(ctx, userID, offerID); err != nil {
		return uuid.Nil, err
	}

	return offerID, nil
}

// VerifyRedemption проверяет отсканированный код без изменения состояния.
func (s *Service) VerifyRedemption(ctx context.Context, payload string) (*Verification, error) {
	offerID, userID, err := s.decode(payload)
	if err != nil {
		return nil, err
	}

	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Verification{
		OfferID:    offer.ID,
		OfferTitle: offer.Title,
		Restaurant: offer.RestaurantName,
		UserID:     user.ID,
		IsActive:   offer.IsActive,
		Pending:    engagement.CheckClaim(user, offer) == nil,
	}, nil
}

func (s *Service) decode(payload string) (uuid.UUID, int64, error) {
	offerID, userID, err := s.codec.Decode(payload)
	if err != nil {
		if errors.Is(err, redemption.ErrInvalidPayload) {
			return uuid.Nil, 0, fmt.Errorf("%w: %w", model.ErrValidation, err)
		}
		return uuid.Nil, 0, err
	}
	return offerID, userID, nil
}
