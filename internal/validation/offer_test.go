package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/offer-system/internal/model"
)

func strPtr(s string) *string {
	return &s
}

func validOffer() *model.Offer {
	return &model.Offer{
		Title:          "Free dessert",
		RestaurantName: "Blue Door",
		Location:       "12 Market St",
		PhoneNumber:    "+1 (555) 010-2000",
		Image:          model.ImageRef{URL: "https://cdn.example.com/a.jpg"},
	}
}

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		name    string
		days    []string
		want    []time.Weekday
		wantErr bool
	}{
		{
			name: "full names",
			days: []string{"Monday", "friday"},
			want: []time.Weekday{time.Monday, time.Friday},
		},
		{
			name: "short names and duplicates",
			days: []string{"sat", "Sun", "Saturday"},
			want: []time.Weekday{time.Sunday, time.Saturday},
		},
		{
			name: "empty",
			days: nil,
			want: []time.Weekday{},
		},
		{
			name:    "unknown",
			days:    []string{"Funday"},
			wantErr: true,
		},
		{
			name:    "too short",
			days:    []string{"mo"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWeekdays(tt.days)
			if tt.wantErr {
				assert.True(t, errors.Is(err, model.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateOffer(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *model.Offer)
		field  string
	}{
		{name: "valid", mutate: func(o *model.Offer) {}},
		{name: "missing title", mutate: func(o *model.Offer) { o.Title = "  " }, field: "title"},
		{name: "bad phone", mutate: func(o *model.Offer) { o.PhoneNumber = "call me" }, field: "phoneNumber"},
		{name: "missing location", mutate: func(o *model.Offer) { o.Location = "" }, field: "location"},
		{name: "long title", mutate: func(o *model.Offer) { o.Title = strings.Repeat("a", 201) }, field: "title"},
		{name: "title of 200 runes", mutate: func(o *model.Offer) { o.Title = strings.Repeat("ж", 200) }},
		{name: "long description", mutate: func(o *model.Offer) { o.Description = strings.Repeat("d", 4001) }, field: "description"},
		{name: "bad start time", mutate: func(o *model.Offer) { o.StartTime = strPtr("25:00") }, field: "startTime"},
		{
			name: "end before start",
			mutate: func(o *model.Offer) {
				o.StartTime = strPtr("18:00")
				o.EndTime = strPtr("12:00")
			},
			field: "endTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOffer()
			tt.mutate(o)

			err := ValidateOffer(o)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var verrs Errors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, verrs, tt.field)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestValidateNewOffer_Image(t *testing.T) {
	o := validOffer()
	o.Image = model.ImageRef{}

	err := ValidateNewOffer(o, false)
	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "image")

	assert.NoError(t, ValidateNewOffer(o, true))
	assert.NoError(t, ValidateOffer(o))
}

func TestValidateOffer_Messages(t *testing.T) {
	o := validOffer()
	o.RestaurantName = " "
	o.Title = strings.Repeat("t", 201)
	o.PhoneNumber = "phone"

	var verrs Errors
	require.True(t, errors.As(ValidateOffer(o), &verrs))
	assert.Equal(t, Errors{
		"restaurantName": "is required",
		"title":          "must be at most 200 characters",
		"phoneNumber":    "must contain digits only",
	}, verrs)
}
