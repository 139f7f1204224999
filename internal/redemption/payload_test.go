package redemption

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	c := NewCodec("test-secret")
	offerID := uuid.MustParse("5f0c7a5e-9a8b-4c2d-8e1f-0a1b2c3d4e5f")

	payload := c.Encode(offerID, 42)
	assert.True(t, strings.HasPrefix(payload, "OFFER:5f0c7a5e-9a8b-4c2d-8e1f-0a1b2c3d4e5f-USER:42-SIG:"))

	gotOffer, gotUser, err := c.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, offerID, gotOffer)
	assert.Equal(t, int64(42), gotUser)
}

func TestCodec_Rejects(t *testing.T) {
	c := NewCodec("test-secret")
	offerID := uuid.New()
	valid := c.Encode(offerID, 42)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: ""},
		{name: "unsigned", payload: "OFFER:" + offerID.String() + "-USER:42"},
		{name: "user swapped", payload: strings.Replace(valid, "-USER:42", "-USER:43", 1)},
		{name: "other secret", payload: NewCodec("other").Encode(offerID, 42)},
		{name: "garbage", payload: "hello-SIG:0000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.Decode(tt.payload)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestCodec_EmptySecretIsNotAKey(t *testing.T) {
	offerID := uuid.New()
	body := "OFFER:" + offerID.String() + "-USER:42"

	mac := hmac.New(sha256.New, nil)
	mac.Write([]byte(body))
	forged := body + "-SIG:" + hex.EncodeToString(mac.Sum(nil))[:16]

	c := NewCodec("")
	_, _, err := c.Decode(forged)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, userID, err := c.Decode(c.Encode(offerID, 42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	assert.NotEqual(t, c.Encode(offerID, 42), NewCodec("").Encode(offerID, 42))
}

func TestQRCode_PNG(t *testing.T) {
	png, err := QRCode(NewCodec("s").Encode(uuid.New(), 1))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
