package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/offer-system/internal/model"
)

func TestRoles_RoleFor(t *testing.T) {
	r := NewRoles([]string{" Admin@Example.com", "", "boss@example.com"})

	assert.Equal(t, model.RoleAdmin, r.RoleFor("admin@example.com"))
	assert.Equal(t, model.RoleAdmin, r.RoleFor("BOSS@example.com "))
	assert.Equal(t, model.RoleUser, r.RoleFor("guest@example.com"))
	assert.Equal(t, model.RoleUser, NewRoles(nil).RoleFor("admin@example.com"))
}

func TestParseEmail(t *testing.T) {
	got, err := ParseEmail("  User@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got)

	for _, bad := range []string{"", "not-an-email", "Name <a@b.c>"} {
		_, err := ParseEmail(bad)
		assert.ErrorIs(t, err, model.ErrValidation, bad)
	}
}

func TestNewCode(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		assert.Len(t, code, codeDigits)
	}
}

func TestHashCode(t *testing.T) {
	a := HashCode("user@example.com", "123456")
	b := HashCode(" USER@example.com", "123456 ")
	c := HashCode("user@example.com", "654321")
	d := HashCode("other@example.com", "123456")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.SendCode(context.Background(), "user@example.com", "123456"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "123456", logs.All()[0].ContextMap()["code"])
}
