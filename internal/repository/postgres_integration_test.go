package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/offer-system/internal/engagement"
	"github.com/mmeshcher/offer-system/internal/model"
)

// newPostgres подключается к DATABASE_URI и пропускает тест, если переменная не задана.
func newPostgres(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		t.Skip("DATABASE_URI is not set")
	}

	r, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func seedPostgresOffer(t *testing.T, r *PostgresRepository) *model.Offer {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	o := &model.Offer{
		ID:             uuid.New(),
		Title:          "Lunch deal",
		RestaurantName: "Blue Door",
		Location:       "12 Market St",
		PhoneNumber:    "+1 555 010 2000",
		ValidDays:      []time.Weekday{time.Monday, time.Friday},
		Image:          model.ImageRef{URL: "https://cdn.example.com/lunch.jpg"},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, r.CreateOffer(context.Background(), o))
	t.Cleanup(func() { _, _ = r.DeleteOffer(context.Background(), o.ID) })
	return o
}

func claim(ctx context.Context, r *PostgresRepository, userID int64, offerID uuid.UUID) error {
	return r.ExecTx(ctx, func(tx Tx) error {
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

func TestPostgresRepository_ConcurrentClaims(t *testing.T) {
	r := newPostgres(t)
	ctx := context.Background()
	o := seedPostgresOffer(t, r)

	const users = 4
	const attempts = 8

	ids := make([]int64, users)
	for i := range ids {
		u, err := r.FindOrCreateUser(ctx, uuid.NewString()+"@example.com", model.RoleUser)
		require.NoError(t, err)
		ids[i] = u.ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded = map[int64]int{}
		failures  []error
	)
	for _, id := range ids {
		for range attempts {
			wg.Add(1)
			go func(userID int64) {
				defer wg.Done()

				err := claim(ctx, r, userID, o.ID)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded[userID]++
				case !errors.Is(err, model.ErrAlreadyClaimed):
					failures = append(failures, err)
				}
			}(id)
		}
	}
	wg.Wait()

	assert.Empty(t, failures)
	for _, id := range ids {
		assert.Equal(t, 1, succeeded[id], "user %d", id)

		u, err := r.GetUser(ctx, id)
		require.NoError(t, err)
		assert.True(t, u.ClaimedOffers.Has(o.ID))
	}

	stored, err := r.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(users), stored.ClaimsCount)
}

func TestPostgresRepository_ClaimInactiveOffer(t *testing.T) {
	r := newPostgres(t)
	ctx := context.Background()
	o := seedPostgresOffer(t, r)

	o.IsActive = false
	require.NoError(t, r.ExecTx(ctx, func(tx Tx) error {
		return tx.UpdateOffer(ctx, o)
	}))

	u, err := r.FindOrCreateUser(ctx, uuid.NewString()+"@example.com", model.RoleUser)
	require.NoError(t, err)

	assert.ErrorIs(t, claim(ctx, r, u.ID, o.ID), model.ErrOfferInactive)

	stored, err := r.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.ClaimsCount)
}

func TestPostgresRepository_LikeUnknownUserRollsBack(t *testing.T) {
	r := newPostgres(t)
	ctx := context.Background()
	o := seedPostgresOffer(t, r)

	err := r.ExecTx(ctx, func(tx Tx) error {
		if _, err := tx.LockOffer(ctx, o.ID); err != nil {
			return err
		}
		if _, err := tx.LockUser(ctx, -1); err != nil {
			return err
		}
		return tx.SetLike(ctx, o.ID, -1, true)
	})
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	stored, err := r.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.LikedBy.Len())
}
