package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/offer-system/internal/model"
)

func seedOffer(t *testing.T, r *MemoryRepository, createdAt time.Time) *model.Offer {
	t.Helper()

	o := &model.Offer{
		ID:        uuid.New(),
		Title:     "Lunch deal",
		IsActive:  true,
		CreatedAt: createdAt,
	}
	require.NoError(t, r.CreateOffer(context.Background(), o))
	return o
}

func TestMemoryRepository_FindOrCreateUserKeepsRole(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	u, err := r.FindOrCreateUser(ctx, "a@example.com", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	again, err := r.FindOrCreateUser(ctx, "a@example.com", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, model.RoleAdmin, again.Role)

	_, err = r.GetUser(ctx, 999)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestMemoryRepository_ExecTxRollsBackOnError(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	u, err := r.FindOrCreateUser(ctx, "a@example.com", model.RoleUser)
	require.NoError(t, err)
	o := seedOffer(t, r, time.Now())

	boom := errors.New("boom")
	err = r.ExecTx(ctx, func(tx Tx) error {
		inserted, err := tx.InsertClaim(ctx, u.ID, o.ID)
		require.NoError(t, err)
		require.True(t, inserted)
		require.NoError(t, tx.IncrementClaims(ctx, o.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := r.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ClaimsCount)

	user, err := r.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, user.ClaimedOffers.Has(o.ID))
}

func TestMemoryRepository_InsertClaimOnce(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	u, err := r.FindOrCreateUser(ctx, "a@example.com", model.RoleUser)
	require.NoError(t, err)
	o := seedOffer(t, r, time.Now())

	var results []bool
	for i := 0; i < 2; i++ {
		err := r.ExecTx(ctx, func(tx Tx) error {
			inserted, err := tx.InsertClaim(ctx, u.ID, o.ID)
			results = append(results, inserted)
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, []bool{true, false}, results)
}

func TestMemoryRepository_ReturnedRecordsAreCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	o := seedOffer(t, r, time.Now())

	got, err := r.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	got.LikedBy.Add(1)
	got.IsActive = false

	again, err := r.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.LikedBy.Len())
	assert.True(t, again.IsActive)
}

func TestMemoryRepository_ListAndDelete(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	now := time.Now()
	older := seedOffer(t, r, now.Add(-time.Hour))
	newer := seedOffer(t, r, now)

	offers, err := r.ListOffers(ctx)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, newer.ID, offers[0].ID)
	assert.Equal(t, older.ID, offers[1].ID)

	deleted, err := r.DeleteOffer(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, deleted.ID)

	_, err = r.DeleteOffer(ctx, older.ID)
	assert.ErrorIs(t, err, model.ErrOfferNotFound)

	byIDs, err := r.GetOffersByIDs(ctx, []uuid.UUID{older.ID, newer.ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Equal(t, newer.ID, byIDs[0].ID)
}

func TestMemoryRepository_LoginCodes(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.SaveLoginCode(ctx, "a@example.com", []byte("h1"), now.Add(time.Minute)))
	require.NoError(t, r.SaveLoginCode(ctx, "a@example.com", []byte("old"), now.Add(-time.Minute)))
	require.NoError(t, r.SaveLoginCode(ctx, "b@example.com", []byte("h2"), now.Add(time.Minute)))

	ok, err := r.ConsumeLoginCode(ctx, "a@example.com", []byte("old"), now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.ConsumeLoginCode(ctx, "a@example.com", []byte("h1"), now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ConsumeLoginCode(ctx, "a@example.com", []byte("h1"), now)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := r.DeleteExpiredLoginCodes(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryRepository_RecordFailedLogin(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	expires := time.Now().Add(time.Minute)

	require.NoError(t, r.SaveLoginCode(ctx, "a@example.com", []byte("code"), expires))
	require.NoError(t, r.SaveLoginCode(ctx, "b@example.com", []byte("code"), expires))

	revoked, err := r.RecordFailedLogin(ctx, "a@example.com", 2)
	require.NoError(t, err)
	assert.Zero(t, revoked)

	revoked, err = r.RecordFailedLogin(ctx, "a@example.com", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, revoked)

	ok, err := r.ConsumeLoginCode(ctx, "a@example.com", []byte("code"), time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.ConsumeLoginCode(ctx, "b@example.com", []byte("code"), time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}
