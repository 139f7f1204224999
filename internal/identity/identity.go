// Package identity отвечает за подтверждение адреса электронной почты одноразовым кодом
// и за назначение роли при создании учётной записи.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/offer-system/internal/model"
)

const codeDigits = 6

// Roles назначает роль по списку адресов администраторов.
type Roles struct {
	admins model.Set[string]
}

// NewRoles создаёт Roles по списку адресов администраторов.
func NewRoles(adminEmails []string) *Roles {
	admins := model.NewSet[string]()
	for _, e := range adminEmails {
		if n := NormalizeEmail(e); n != "" {
			admins.Add(n)
		}
	}
	return &Roles{admins: admins}
}

// RoleFor возвращает роль для нового пользователя с указанным адресом.
func (r *Roles) RoleFor(email string) model.Role {
	if r.admins.Has(NormalizeEmail(email)) {
		return model.RoleAdmin
	}
	return model.RoleUser
}

// NormalizeEmail приводит адрес к каноническому виду.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseEmail проверяет и нормализует адрес.
func ParseEmail(email string) (string, error) {
	n := NormalizeEmail(email)
	addr, err := mail.ParseAddress(n)
	if err != nil || addr.Address != n {
		return "", fmt.Errorf("%w: invalid email %q", model.ErrValidation, email)
	}
	return n, nil
}

// NewCode генерирует шестизначный одноразовый код.
func NewCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// HashCode возвращает хеш кода, привязанный к адресу. В хранилище попадает только хеш.
func HashCode(email, code string) []byte {
	sum := sha256.Sum256([]byte(NormalizeEmail(email) + ":" + strings.TrimSpace(code)))
	return sum[:]
}

// Mailer доставляет одноразовый код пользователю.
type Mailer interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogMailer записывает коды в журнал. Используется, пока не подключена почтовая доставка.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer создаёт LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendCode пишет код в журнал.
func (m *LogMailer) SendCode(_ context.Context, email, code string) error {
	m.logger.Info("login code issued", zap.String("email", email), zap.String("code", code))
	return nil
}
