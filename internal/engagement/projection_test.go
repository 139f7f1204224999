package engagement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/offer-system/internal/model"
)

func TestProject_Flags(t *testing.T) {
	user := newUser(1)

	liked := newOffer(true)
	liked.LikedBy.Add(user.ID)

	saved := newOffer(true)
	user.SavedOffers.Add(saved.ID)

	claimed := newOffer(false)
	user.ClaimedOffers.Add(claimed.ID)

	views := Project(user, []model.Offer{*liked, *saved, *claimed})

	assert.Len(t, views, 3)
	assert.Equal(t, liked.ID, views[0].Offer.ID)
	assert.True(t, views[0].IsLiked)
	assert.False(t, views[0].IsSaved)
	assert.True(t, views[1].IsSaved)
	assert.False(t, views[1].IsClaimed)
	assert.True(t, views[2].IsClaimed)
	assert.False(t, views[2].IsLiked)
}

func TestProject_Pure(t *testing.T) {
	user := newUser(1)
	offer := newOffer(true)
	offer.LikedBy.Add(2)
	user.SavedOffers.Add(offer.ID)

	offers := []model.Offer{*offer}

	first := Project(user, offers)
	second := Project(user, offers)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, offer.LikedBy.Len())
	assert.Equal(t, 1, user.SavedOffers.Len())
}

func TestBrowsable_HidesClaimed(t *testing.T) {
	user := newUser(1)
	open := newOffer(true)
	used := newOffer(true)
	user.ClaimedOffers.Add(used.ID)

	views := Browsable(Project(user, []model.Offer{*open, *used}))

	assert.Len(t, views, 1)
	assert.Equal(t, open.ID, views[0].Offer.ID)
}

func TestProfile_SavedKeepsClaimedAndSkipsMissing(t *testing.T) {
	user := newUser(1)
	offer := newOffer(true)
	user.SavedOffers.Add(offer.ID)
	user.ClaimedOffers.Add(offer.ID)
	user.SavedOffers.Add(uuid.New())

	p := Profile(user, []model.Offer{*offer})

	assert.Len(t, p.Saved, 1)
	assert.Len(t, p.Claimed, 1)
	assert.True(t, p.Saved[0].IsClaimed)
}
