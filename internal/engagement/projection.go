package engagement

import "github.com/mmeshcher/offer-system/internal/model"

// ProjectOne вычисляет признаки предложения для пользователя.
func ProjectOne(user *model.User, offer model.Offer) model.OfferView {
	return model.OfferView{
		Offer:     offer,
		IsLiked:   offer.LikedBy.Has(user.ID),
		IsSaved:   user.SavedOffers.Has(offer.ID),
		IsClaimed: user.ClaimedOffers.Has(offer.ID),
	}
}

// Project вычисляет признаки для каждого предложения, сохраняя порядок.
func Project(user *model.User, offers []model.Offer) []model.OfferView {
	views := make([]model.OfferView, 0, len(offers))
	for _, o := range offers {
		views = append(views, ProjectOne(user, o))
	}
	return views
}

// Browsable убирает из основной ленты уже использованные предложения.
func Browsable(views []model.OfferView) []model.OfferView {
	res := make([]model.OfferView, 0, len(views))
	for _, v := range views {
		if v.IsClaimed {
			continue
		}
		res = append(res, v)
	}
	return res
}

// Profile собирает сохранённые и использованные предложения пользователя.
// Идентификаторы удалённых предложений пропускаются.
func Profile(user *model.User, offers []model.Offer) model.Profile {
	p := model.Profile{
		Saved:   []model.OfferView{},
		Claimed: []model.OfferView{},
	}
	for _, o := range offers {
		if user.SavedOffers.Has(o.ID) {
			p.Saved = append(p.Saved, ProjectOne(user, o))
		}
		if user.ClaimedOffers.Has(o.ID) {
			p.Claimed = append(p.Claimed, ProjectOne(user, o))
		}
	}
	return p
}
