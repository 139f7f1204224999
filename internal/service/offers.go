package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/mmeshcher/offer-system/internal/engagement"
	"github.com/mmeshcher/offer-system/internal/model"
	"github.com/mmeshcher/offer-system/internal/repository"
)

// ListOptions задаёт фильтры ленты предложений.
type ListOptions struct {
	// Query задаёт строку нечёткого поиска по названию, ресторану и адресу.
	Query string
	// HideClaimed убирает предложения, уже использованные пользователем.
	HideClaimed bool
}

// ListOffers возвращает предложения с признаками для пользователя.
func (s *Service) ListOffers(ctx context.Context, userID int64, opts ListOptions) ([]model.OfferView, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	offers, err := s.repo.ListOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}

	views := engagement.Project(user, offers)
	if opts.HideClaimed {
		views = engagement.Browsable(views)
	}

	if q := strings.TrimSpace(opts.Query); q != "" {
		views = search(q, views)
	}

	return views, nil
}

type offerSource []model.OfferView

func (s offerSource) String(i int) string {
	o := s[i].Offer
	return strings.ToLower(o.Title + " " + o.RestaurantName + " " + o.Location)
}

func (s offerSource) Len() int {
	return len(s)
}

// search упорядочивает предложения по степени совпадения с запросом.
func search(query string, views []model.OfferView) []model.OfferView {
	matches := fuzzy.FindFrom(strings.ToLower(query), offerSource(views))

	res := make([]model.OfferView, 0, len(matches))
	for _, m := range matches {
		res = append(res, views[m.Index])
	}
	return res
}

// GetOffer возвращает предложение с признаками для пользователя независимо от того, использовано ли оно.
func (s *Service) GetOffer(ctx context.Context, userID int64, offerID uuid.UUID) (*model.OfferView, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	view := engagement.ProjectOne(user, *offer)
	return &view, nil
}

// ToggleLike переключает лайк пользователя и возвращает обновлённое предложение.
func (s *Service) ToggleLike(ctx context.Context, userID int64, offerID uuid.UUID) (*model.OfferView, error) {
	var (
		updated *model.Offer
		user    *model.User
	)

	err := s.repo.ExecTx(ctx, func(tx repository.Tx) error {
		offer, err := tx.LockOffer(ctx, offerID)
		if err != nil {
			return err
		}

		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		liked := engagement.ToggleLike(offer, userID)
		if err := tx.SetLike(ctx, offerID, userID, liked); err != nil {
			return err
		}

		updated, user = offer, u
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := engagement.ProjectOne(user, *updated)
	return &view, nil
}

// ToggleSave переключает наличие предложения в сохранённых и возвращает обновлённый список.
// Сохранить можно только существующее предложение, убрать можно любое.
func (s *Service) ToggleSave(ctx context.Context, userID int64, offerID uuid.UUID) ([]uuid.UUID, error) {
	var saved model.Set[uuid.UUID]

	err := s.repo.ExecTx(ctx, func(tx repository.Tx) error {
		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		nowSaved := engagement.ToggleSave(user, offerID)
		if nowSaved {
			exists, err := tx.OfferExists(ctx, offerID)
			if err != nil {
				return err
			}
			if !exists {
				return model.ErrOfferNotFound
			}
		}

		if err := tx.SetSaved(ctx, userID, offerID, nowSaved); err != nil {
			return err
		}

		saved = user.SavedOffers
		return nil
	})
	if err != nil {
		return nil, err
	}

	return model.SortedBy(saved, uuid.UUID.String), nil
}

// Claim отмечает предложение использованным. Пользователь может использовать предложение только один раз;
// проверка и запись обеих сущностей выполняются в одной транзакции.
func (s *Service) Claim(ctx context.Context, userID int64, offerID uuid.UUID) error {
	return s.repo.ExecTx(ctx, func(tx repository.Tx) error {
		offer, err := tx.LockOffer(ctx, offerID)
		if err != nil {
			return err
		}

		user, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		if err := engagement.ApplyClaim(user, offer); err != nil {
			return err
		}

		inserted, err := tx.InsertClaim(ctx, userID, offerID)
		if err != nil {
			return err
		}
		if !inserted {
			return model.ErrAlreadyClaimed
		}

		return tx.IncrementClaims(ctx, offerID)
	})
}

// Profile возвращает сохранённые и использованные пользователем предложения.
func (s *Service) Profile(ctx context.Context, userID int64) (*model.Profile, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := user.SavedOffers.Clone()
	for id := range user.ClaimedOffers {
		ids.Add(id)
	}

	offers, err := s.repo.GetOffersByIDs(ctx, model.SortedBy(ids, uuid.UUID.String))
	if err != nil {
		return nil, fmt.Errorf("load profile offers: %w", err)
	}

	p := engagement.Profile(user, offers)
	return &p, nil
}
