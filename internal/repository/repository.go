// Package repository содержит реализации хранилища учётных записей и каталога предложений.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mmeshcher/offer-system/internal/model"
)

// Tx описывает операции, выполняемые внутри одной транзакции.
// Блокировки берутся в порядке: предложение, затем пользователь.
type Tx interface {
	// LockOffer читает предложение с блокировкой до конца транзакции.
	LockOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	// LockUser читает пользователя с блокировкой до конца транзакции.
	LockUser(ctx context.Context, id int64) (*model.User, error)
	OfferExists(ctx context.Context, id uuid.UUID) (bool, error)
	SetLike(ctx context.Context, offerID uuid.UUID, userID int64, liked bool) error
	SetSaved(ctx context.Context, userID int64, offerID uuid.UUID, saved bool) error
	// InsertClaim возвращает false, если пара уже использована.
	InsertClaim(ctx context.Context, userID int64, offerID uuid.UUID) (bool, error)
	IncrementClaims(ctx context.Context, offerID uuid.UUID) error
	UpdateOffer(ctx context.Context, o *model.Offer) error
}
