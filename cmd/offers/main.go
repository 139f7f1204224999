// Package main запускает HTTP-сервер сервиса скидочных предложений.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/offer-system/internal/config"
	"github.com/mmeshcher/offer-system/internal/handler"
	"github.com/mmeshcher/offer-system/internal/identity"
	"github.com/mmeshcher/offer-system/internal/images"
	"github.com/mmeshcher/offer-system/internal/mailrelay"
	"github.com/mmeshcher/offer-system/internal/middleware"
	"github.com/mmeshcher/offer-system/internal/redemption"
	"github.com/mmeshcher/offer-system/internal/repository"
	"github.com/mmeshcher/offer-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	if cfg.AuthSecret == "" {
		sugar.Warn("AUTH_SECRET is not set, tokens and redemption codes will not survive a restart")
		cfg.AuthSecret = randomSecret()
	}

	opts := service.Options{
		Roles:   identity.NewRoles(cfg.AdminEmails),
		Mailer:  identity.NewLogMailer(logger),
		Codec:   redemption.NewCodec(cfg.AuthSecret),
		Logger:  logger,
		CodeTTL: cfg.OTPTTL,
	}

	if cfg.MailRelay != "" {
		opts.Mailer = mailrelay.NewClient(cfg.MailRelay)
	}

	if cfg.Images.Bucket != "" {
		store, err := images.NewS3Store(ctx, images.Options{
			Bucket:    cfg.Images.Bucket,
			Region:    cfg.Images.Region,
			Endpoint:  cfg.Images.Endpoint,
			AccessKey: cfg.Images.AccessKey,
			SecretKey: cfg.Images.SecretKey,
			PublicURL: cfg.Images.PublicURL,
		})
		if err != nil {
			sugar.Fatalw("image store initialization error", "error", err.Error())
		}
		opts.Images = store
	} else {
		sugar.Warn("IMAGE_BUCKET is not set, image uploads are disabled")
	}

	svc, err := service.NewService(repo, opts)
	if err != nil {
		sugar.Fatalw("service initialization error", "error", err.Error())
	}
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая очистка просроченных кодов входа
	g.Go(func() error {
		svc.StartLoginCodeCleanup(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting offers server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func openRepository(cfg *config.Config) (service.Repository, error) {
	if cfg.DatabaseURI == "" {
		return repository.NewMemoryRepository(), nil
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// randomSecret возвращает общий секрет для токенов и кодов погашения на время жизни процесса.
func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
