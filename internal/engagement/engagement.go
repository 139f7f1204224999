// Package engagement содержит правила взаимодействия пользователя с предложениями:
// переключение лайков и сохранений, однократное использование и проекцию
// пользовательских признаков на каталог. Функции пакета не обращаются к хранилищу
// и работают только с переданными записями.
package engagement

import (
	"github.com/google/uuid"

	"github.com/mmeshcher/offer-system/internal/model"
)

// ToggleLike переключает лайк пользователя и возвращает новое состояние.
func ToggleLike(offer *model.Offer, userID int64) bool {
	if offer.LikedBy == nil {
		offer.LikedBy = model.NewSet[int64]()
	}
	if offer.LikedBy.Has(userID) {
		offer.LikedBy.Remove(userID)
		return false
	}
	offer.LikedBy.Add(userID)
	return true
}

// ToggleSave переключает наличие предложения в сохранённых и возвращает новое состояние.
func ToggleSave(user *model.User, offerID uuid.UUID) bool {
	if user.SavedOffers == nil {
		user.SavedOffers = model.NewSet[uuid.UUID]()
	}
	if user.SavedOffers.Has(offerID) {
		user.SavedOffers.Remove(offerID)
		return false
	}
	user.SavedOffers.Add(offerID)
	return true
}

// CheckClaim проверяет, может ли пользователь использовать предложение.
// Обе записи должны быть прочитаны согласованно, в одной транзакции.
func CheckClaim(user *model.User, offer *model.Offer) error {
	if offer == nil {
		return model.ErrOfferNotFound
	}
	if user == nil {
		return model.ErrUserNotFound
	}
	if !offer.IsActive {
		return model.ErrOfferInactive
	}
	if user.ClaimedOffers.Has(offer.ID) {
		return model.ErrAlreadyClaimed
	}
	return nil
}

// ApplyClaim отмечает предложение использованным и увеличивает счётчик ровно на единицу.
// При ошибке записи не изменяются.
func ApplyClaim(user *model.User, offer *model.Offer) error {
	if err := CheckClaim(user, offer); err != nil {
		return err
	}
	if user.ClaimedOffers == nil {
		user.ClaimedOffers = model.NewSet[uuid.UUID]()
	}
	user.ClaimedOffers.Add(offer.ID)
	offer.ClaimsCount++
	return nil
}
