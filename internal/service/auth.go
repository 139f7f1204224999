package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/offer-system/internal/identity"
	"github.com/mmeshcher/offer-system/internal/model"
)

// RequestLoginCode выдаёт одноразовый код входа и отправляет его на адрес.
func (s *Service) RequestLoginCode(ctx context.Context, email string) error {
	email, err := identity.ParseEmail(email)
	if err != nil {
		return err
	}

	code, err := identity.NewCode()
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.codeTTL)
	if err := s.repo.SaveLoginCode(ctx, email, identity.HashCode(email, code), expiresAt); err != nil {
		return fmt.Errorf("save login code: %w", err)
	}

	if err := s.mailer.SendCode(ctx, email, code); err != nil {
		return fmt.Errorf("send login code: %w", err)
	}

	return nil
}

// LoginWithCode проверяет одноразовый код и возвращает учётную запись, создавая её при первом входе.
func (s *Service) LoginWithCode(ctx context.Context, email, code string) (*model.User, error) {
	email, err := identity.ParseEmail(email)
	if err != nil {
		return nil, model.ErrAuthenticationFailed
	}

	ok, err := s.repo.ConsumeLoginCode(ctx, email, identity.HashCode(email, code), s.now())
	if err != nil {
		return nil, fmt.Errorf("consume login code: %w", err)
	}
	if !ok {
		s.recordFailedLogin(ctx, email)
		return nil, model.ErrAuthenticationFailed
	}

	return s.EnsureAccount(ctx, email)
}

// recordFailedLogin засчитывает неверный код. После maxLoginAttempts неудач коды адреса отзываются,
// и нужно запросить новый.
func (s *Service) recordFailedLogin(ctx context.Context, email string) {
	revoked, err := s.repo.RecordFailedLogin(ctx, email, maxLoginAttempts)
	if err != nil {
		s.logger.Warn("record failed login", zap.Error(err))
		return
	}
	if revoked > 0 {
		s.logger.Info("login codes revoked after failed attempts", zap.Int64("revoked", revoked))
	}
}

// EnsureAccount находит или создаёт учётную запись для подтверждённого адреса.
// Роль назначается только при создании.
func (s *Service) EnsureAccount(ctx context.Context, verifiedEmail string) (*model.User, error) {
	email := identity.NormalizeEmail(verifiedEmail)
	if email == "" {
		return nil, model.ErrAuthenticationFailed
	}

	u, err := s.repo.FindOrCreateUser(ctx, email, s.roles.RoleFor(email))
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}

	s.roleCache.Add(u.ID, u.Role)
	return u, nil
}

// UserRole возвращает роль пользователя. Роль не меняется после создания, поэтому кешируется.
func (s *Service) UserRole(ctx context.Context, userID int64) (model.Role, error) {
	if v, ok := s.roleCache.Get(userID); ok {
		return v.(model.Role), nil
	}

	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			s.logger.Error("load user role", zap.Error(err), zap.Int64("userID", userID))
		}
		return "", err
	}

	s.roleCache.Add(u.ID, u.Role)
	return u.Role, nil
}
