package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/offer-system/internal/model"
)

type offerResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	RestaurantName string   `json:"restaurantName"`
	Location       string   `json:"location"`
	PhoneNumber    string   `json:"phoneNumber"`
	Description    string   `json:"description"`
	ValidDays      []string `json:"validDays"`
	StartTime      *string  `json:"startTime,omitempty"`
	EndTime        *string  `json:"endTime,omitempty"`
	ImportantNote  *string  `json:"importantNote,omitempty"`
	ImageURL       string   `json:"imageUrl"`
	IsActive       bool     `json:"isActive"`
	LikesCount     int      `json:"likesCount"`
	ClaimsCount    int64    `json:"claimsCount"`
	IsLiked        bool     `json:"isLiked"`
	IsSaved        bool     `json:"isSaved"`
	IsClaimed      bool     `json:"isClaimed"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

func toOfferResponse(v model.OfferView) offerResponse {
	o := v.Offer

	days := make([]string, 0, len(o.ValidDays))
	for _, d := range o.ValidDays {
		days = append(days, d.String())
	}

	return offerResponse{
		ID:             o.ID.String(),
		Title:          o.Title,
		RestaurantName: o.RestaurantName,
		Location:       o.Location,
		PhoneNumber:    o.PhoneNumber,
		Description:    o.Description,
		ValidDays:      days,
		StartTime:      o.StartTime,
		EndTime:        o.EndTime,
		ImportantNote:  o.ImportantNote,
		ImageURL:       o.Image.URL,
		IsActive:       o.IsActive,
		LikesCount:     o.LikedBy.Len(),
		ClaimsCount:    o.ClaimsCount,
		IsLiked:        v.IsLiked,
		IsSaved:        v.IsSaved,
		IsClaimed:      v.IsClaimed,
		CreatedAt:      o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      o.UpdatedAt.Format(time.RFC3339),
	}
}

func toOfferResponses(views []model.OfferView) []offerResponse {
	resp := make([]offerResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toOfferResponse(v))
	}
	return resp
}

type profileResponse struct {
	Saved   []offerResponse `json:"saved"`
	Claimed []offerResponse `json:"claimed"`
}

type savedResponse struct {
	SavedOffers []string `json:"savedOffers"`
}

func toSavedResponse(ids []uuid.UUID) savedResponse {
	resp := savedResponse{SavedOffers: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.SavedOffers = append(resp.SavedOffers, id.String())
	}
	return resp
}

type claimResponse struct {
	OfferID string `json:"offerId"`
	Claimed bool   `json:"claimed"`
}

type challengeResponse struct {
	OfferID string `json:"offerId"`
	UserID  int64  `json:"userId"`
	Payload string `json:"payload"`
}

type verificationResponse struct {
	OfferID        string `json:"offerId"`
	OfferTitle     string `json:"offerTitle"`
	RestaurantName string `json:"restaurantName"`
	UserID         int64  `json:"userId"`
	IsActive       bool   `json:"isActive"`
	Pending        bool   `json:"pending"`
}
