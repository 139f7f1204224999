// Package service реализует бизнес-логику сервиса скидочных предложений.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/mmeshcher/offer-system/internal/identity"
	"github.com/mmeshcher/offer-system/internal/images"
	"github.com/mmeshcher/offer-system/internal/model"
	"github.com/mmeshcher/offer-system/internal/redemption"
	"github.com/mmeshcher/offer-system/internal/repository"
)

const (
	defaultCodeTTL      = 5 * time.Minute
	roleCacheSize       = 4096
	codeCleanupInterval = time.Minute
	maxLoginAttempts    = 5
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	ExecTx(ctx context.Context, fn func(repository.Tx) error) error
	FindOrCreateUser(ctx context.Context, email string, role model.Role) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListOffers(ctx context.Context) ([]model.Offer, error)
	GetOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	GetOffersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Offer, error)
	CreateOffer(ctx context.Context, o *model.Offer) error
	DeleteOffer(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	SaveLoginCode(ctx context.Context, email string, codeHash []byte, expiresAt time.Time) error
	ConsumeLoginCode(ctx context.Context, email string, codeHash []byte, now time.Time) (bool, error)
	RecordFailedLogin(ctx context.Context, email string, limit int) (int64, error)
	DeleteExpiredLoginCodes(ctx context.Context, now time.Time) (int64, error)
}

// ImageStore описывает внешнее хранилище изображений.
type ImageStore interface {
	Upload(ctx context.Context, u images.Upload) (model.ImageRef, error)
	Delete(ctx context.Context, handle string) error
}

// Options содержит зависимости сервиса.
type Options struct {
	// Images может быть nil: тогда загрузка файлов недоступна, а предложения создаются по готовой ссылке.
	Images  ImageStore
	Roles   *identity.Roles
	Mailer  identity.Mailer
	Codec   *redemption.Codec
	Logger  *zap.Logger
	CodeTTL time.Duration
}

// Service содержит бизнес-логику сервиса скидочных предложений.
type Service struct {
	repo      Repository
	images    ImageStore
	roles     *identity.Roles
	mailer    identity.Mailer
	codec     *redemption.Codec
	logger    *zap.Logger
	codeTTL   time.Duration
	roleCache *lru.Cache
	now       func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием и зависимостями.
func NewService(repo Repository, opts Options) (*Service, error) {
	cache, err := lru.New(roleCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create role cache: %w", err)
	}

	s := &Service{
		repo:      repo,
		images:    opts.Images,
		roles:     opts.Roles,
		mailer:    opts.Mailer,
		codec:     opts.Codec,
		logger:    opts.Logger,
		codeTTL:   opts.CodeTTL,
		roleCache: cache,
		now:       func() time.Time { return time.Now().UTC() },
	}

	if s.roles == nil {
		s.roles = identity.NewRoles(nil)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.mailer == nil {
		s.mailer = identity.NewLogMailer(s.logger)
	}
	if s.codeTTL <= 0 {
		s.codeTTL = defaultCodeTTL
	}

	return s, nil
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
