package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/offer-system/internal/images"
	"github.com/mmeshcher/offer-system/internal/model"
	"github.com/mmeshcher/offer-system/internal/repository"
	"github.com/mmeshcher/offer-system/internal/validation"
)

// CreateOffer создаёт активное предложение. Если передан файл, он загружается в хранилище изображений;
// иначе используется готовая ссылка из input.
func (s *Service) CreateOffer(ctx context.Context, in model.OfferInput, upload *images.Upload) (*model.Offer, error) {
	days, err := validation.ParseWeekdays(in.ValidDays)
	if err != nil {
		return nil, err
	}

	now := s.now()
	offer := &model.Offer{
		ID:             uuid.New(),
		Title:          in.Title,
		RestaurantName: in.RestaurantName,
		Location:       in.Location,
		PhoneNumber:    in.PhoneNumber,
		Description:    in.Description,
		ValidDays:      days,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		ImportantNote:  in.ImportantNote,
		Image:          model.ImageRef{URL: in.ImageURL},
		IsActive:       true,
		LikedBy:        model.NewSet[int64](),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := validation.ValidateNewOffer(offer, upload != nil); err != nil {
		return nil, err
	}

	if upload != nil {
		if s.images == nil {
			return nil, validation.Errors{"image": "uploads are not configured"}
		}

		ref, err := s.images.Upload(ctx, *upload)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		offer.Image = ref
	}

	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		s.releaseImage(offer)
		return nil, fmt.Errorf("create offer: %w", err)
	}

	return offer, nil
}

// UpdateOffer применяет частичное изменение. Пустые поля сохраняют текущее значение.
func (s *Service) UpdateOffer(ctx context.Context, offerID uuid.UUID, patch model.OfferPatch) (*model.Offer, error) {
	return s.modifyOffer(ctx, offerID, func(o *model.Offer) error {
		return applyPatch(o, patch)
	})
}

// SetOfferActive включает или выключает предложение. История использований не меняется.
func (s *Service) SetOfferActive(ctx context.Context, offerID uuid.UUID, active bool) (*model.Offer, error) {
	return s.modifyOffer(ctx, offerID, func(o *model.Offer) error {
		o.IsActive = active
		return nil
	})
}

func (s *Service) modifyOffer(ctx context.Context, offerID uuid.UUID, change func(o *model.Offer) error) (*model.Offer, error) {
	var updated *model.Offer

	err := s.repo.ExecTx(ctx, func(tx repository.Tx) error {
		offer, err := tx.LockOffer(ctx, offerID)
		if err != nil {
			return err
		}

		if err := change(offer); err != nil {
			return err
		}
		if err := validation.ValidateOffer(offer); err != nil {
			return err
		}

		offer.UpdatedAt = s.now()
		if err := tx.UpdateOffer(ctx, offer); err != nil {
			return err
		}

		updated = offer
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func applyPatch(o *model.Offer, p model.OfferPatch) error {
	setIfNotEmpty(&o.Title, p.Title)
	setIfNotEmpty(&o.RestaurantName, p.RestaurantName)
	setIfNotEmpty(&o.Location, p.Location)
	setIfNotEmpty(&o.PhoneNumber, p.PhoneNumber)
	setIfNotEmpty(&o.Description, p.Description)

	if len(p.ValidDays) > 0 {
		days, err := validation.ParseWeekdays(p.ValidDays)
		if err != nil {
			return err
		}
		o.ValidDays = days
	}

	setIfPresent(&o.StartTime, p.StartTime)
	setIfPresent(&o.EndTime, p.EndTime)
	setIfPresent(&o.ImportantNote, p.ImportantNote)
	if p.IsActive != nil {
		o.IsActive = *p.IsActive
	}

	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setIfPresent(dst **string, v *string) {
	if v != nil && *v != "" {
		val := *v
		*dst = &val
	}
}

// DeleteOffer удаляет предложение и затем его изображение. Ошибка удаления изображения
// только записывается в журнал: запись каталога уже удалена.
func (s *Service) DeleteOffer(ctx context.Context, offerID uuid.UUID) error {
	offer, err := s.repo.DeleteOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, model.ErrOfferNotFound) {
			return err
		}
		return fmt.Errorf("delete offer: %w", err)
	}

	s.releaseImage(offer)
	return nil
}

func (s *Service) releaseImage(offer *model.Offer) {
	if s.images == nil || offer.Image.Handle == "" {
		return
	}

	// Контекст запроса может быть уже отменён, а удаление должно завершиться.
	ctx, cancel := context.WithTimeout(context.Background(), imageDeleteTimeout)
	defer cancel()

	if err := s.images.Delete(ctx, offer.Image.Handle); err != nil {
		s.logger.Warn("delete offer image failed",
			zap.Error(err),
			zap.String("offerID", offer.ID.String()),
			zap.String("handle", offer.Image.Handle),
		)
	}
}
