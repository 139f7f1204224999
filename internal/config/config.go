// Package config содержит логику чтения конфигурации сервиса скидочных предложений.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultOTPTTL     = 5 * time.Minute
)

// ImageConfig содержит параметры S3-совместимого хранилища изображений.
// Пустой Bucket отключает загрузку файлов.
type ImageConfig struct {
	Bucket    string `env:"IMAGE_BUCKET"`
	Region    string `env:"IMAGE_REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"IMAGE_ENDPOINT"`
	AccessKey string `env:"IMAGE_ACCESS_KEY"`
	SecretKey string `env:"IMAGE_SECRET_KEY"`
	PublicURL string `env:"IMAGE_PUBLIC_URL"`
}

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string        `env:"RUN_ADDRESS"`
	DatabaseURI string        `env:"DATABASE_URI"`
	AuthSecret  string        `env:"AUTH_SECRET"`
	AdminEmails []string      `env:"ADMIN_EMAILS" envSeparator:","`
	OTPTTL      time.Duration `env:"OTP_TTL"`
	MailRelay   string        `env:"MAIL_RELAY_URL"`
	Images      ImageConfig
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envAdminEmails := cfg.AdminEmails
	envOTPTTL := cfg.OTPTTL
	envMailRelay := cfg.MailRelay

	var adminEmails string

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory store when empty")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret for auth tokens and redemption codes")
	flag.StringVar(&adminEmails, "admins", "", "comma separated admin emails")
	flag.DurationVar(&cfg.OTPTTL, "otp-ttl", defaultOTPTTL, "login code lifetime")
	flag.StringVar(&cfg.MailRelay, "m", "", "mail relay address, codes are logged when empty")

	flag.Parse()

	cfg.AdminEmails = splitList(adminEmails)

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if len(envAdminEmails) > 0 {
		cfg.AdminEmails = splitList(strings.Join(envAdminEmails, ","))
	}
	if envOTPTTL > 0 {
		cfg.OTPTTL = envOTPTTL
	}
	if envMailRelay != "" {
		cfg.MailRelay = envMailRelay
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = defaultOTPTTL
	}

	return cfg, nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
