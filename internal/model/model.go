// Package model содержит доменные сущности сервиса скидочных предложений.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role описывает роль пользователя. Назначается один раз при создании учётной записи.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User представляет учётную запись пользователя вместе с его сохранёнными и использованными предложениями.
type User struct {
	ID            int64
	Email         string
	Role          Role
	SavedOffers   Set[uuid.UUID]
	ClaimedOffers Set[uuid.UUID]
	CreatedAt     time.Time
}

// ImageRef ссылается на изображение во внешнем хранилище.
// Handle используется для удаления и может быть пустым для внешних ссылок.
type ImageRef struct {
	URL    string
	Handle string
}

// Offer описывает скидочное предложение ресторана.
type Offer struct {
	ID             uuid.UUID
	Title          string
	RestaurantName string
	Location       string
	PhoneNumber    string
	Description    string
	ValidDays      []time.Weekday
	StartTime      *string
	EndTime        *string
	ImportantNote  *string
	Image          ImageRef
	IsActive       bool
	LikedBy        Set[int64]
	ClaimsCount    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone возвращает копию предложения, не разделяющую изменяемое состояние с оригиналом.
func (o *Offer) Clone() *Offer {
	c := *o
	c.ValidDays = append([]time.Weekday(nil), o.ValidDays...)
	c.LikedBy = o.LikedBy.Clone()
	c.StartTime = clonePtr(o.StartTime)
	c.EndTime = clonePtr(o.EndTime)
	c.ImportantNote = clonePtr(o.ImportantNote)
	return &c
}

// Clone возвращает копию пользователя.
func (u *User) Clone() *User {
	c := *u
	c.SavedOffers = u.SavedOffers.Clone()
	c.ClaimedOffers = u.ClaimedOffers.Clone()
	return &c
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// OfferView описывает предложение с признаками, вычисленными для запрашивающего пользователя.
// Никогда не сохраняется.
type OfferView struct {
	Offer     Offer
	IsLiked   bool
	IsSaved   bool
	IsClaimed bool
}

// OfferInput содержит описательные поля предложения при создании.
type OfferInput struct {
	Title          string
	RestaurantName string
	Location       string
	PhoneNumber    string
	Description    string
	ValidDays      []string
	StartTime      *string
	EndTime        *string
	ImportantNote  *string
	ImageURL       string
}

// OfferPatch описывает частичное изменение предложения.
// Пустые и отсутствующие поля сохраняют текущее значение.
type OfferPatch struct {
	Title          string
	RestaurantName string
	Location       string
	PhoneNumber    string
	Description    string
	ValidDays      []string
	StartTime      *string
	EndTime        *string
	ImportantNote  *string
	IsActive       *bool
}

// Profile содержит сохранённые и использованные пользователем предложения.
type Profile struct {
	Saved   []OfferView
	Claimed []OfferView
}
