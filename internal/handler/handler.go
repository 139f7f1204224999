// Package handler содержит HTTP-обработчики API сервиса скидочных предложений.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/offer-system/internal/images"
	"github.com/mmeshcher/offer-system/internal/middleware"
	"github.com/mmeshcher/offer-system/internal/model"
	"github.com/mmeshcher/offer-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RequestLoginCode(ctx context.Context, email string) error
	LoginWithCode(ctx context.Context, email, code string) (*model.User, error)
	UserRole(ctx context.Context, userID int64) (model.Role, error)

	ListOffers(ctx context.Context, userID int64, opts service.ListOptions) ([]model.OfferView, error)
	GetOffer(ctx context.Context, userID int64, offerID uuid.UUID) (*model.OfferView, error)
	ToggleLike(ctx context.Context, userID int64, offerID uuid.UUID) (*model.OfferView, error)
	ToggleSave(ctx context.Context, userID int64, offerID uuid.UUID) ([]uuid.UUID, error)
	Claim(ctx context.Context, userID int64, offerID uuid.UUID) error
	Profile(ctx context.Context, userID int64) (*model.Profile, error)

	StartRedemption(ctx context.Context, userID int64, offerID uuid.UUID) (*service.Challenge, error)
	ConfirmRedemption(ctx context.Context, userID int64, payload string) (uuid.UUID, error)
	VerifyRedemption(ctx context.Context, payload string) (*service.Verification, error)

	CreateOffer(ctx context.Context, in model.OfferInput, upload *images.Upload) (*model.Offer, error)
	UpdateOffer(ctx context.Context, offerID uuid.UUID, patch model.OfferPatch) (*model.Offer, error)
	SetOfferActive(ctx context.Context, offerID uuid.UUID, active bool) (*model.Offer, error)
	DeleteOffer(ctx context.Context, offerID uuid.UUID) error
}

// Handler реализует HTTP-обработчики API сервиса скидочных предложений.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type loginCodeRequest struct {
	Email string `json:"email"`
}

// RequestCode отправляет одноразовый код входа на указанный адрес.
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req loginCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.RequestLoginCode(r.Context(), req.Email); err != nil {
		h.writeError(w, err, "request login code error")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type loginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

// Login проверяет одноразовый код, устанавливает cookie и возвращает токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Code == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.LoginWithCode(r.Context(), req.Email, req.Code)
	if err != nil {
		h.writeError(w, err, "login error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID)
	h.writeJSON(w, http.StatusOK, loginResponse{
		ID:    user.ID,
		Email: user.Email,
		Role:  string(user.Role),
		Token: h.authMiddleware.Token(user.ID),
	})
}

// Profile возвращает сохранённые и использованные предложения текущего пользователя.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	p, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "get profile error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, profileResponse{
		Saved:   toOfferResponses(p.Saved),
		Claimed: toOfferResponses(p.Claimed),
	})
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return userID, ok
}

func offerIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "offer not found", http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// writeError переводит доменную ошибку в HTTP-ответ. Неожиданные ошибки пишутся в журнал.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, model.ErrOfferNotFound):
		http.Error(w, "offer not found", http.StatusNotFound)
	case errors.Is(err, model.ErrUserNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, model.ErrAlreadyClaimed):
		http.Error(w, "offer already claimed", http.StatusConflict)
	case errors.Is(err, model.ErrOfferInactive):
		http.Error(w, "offer is inactive", http.StatusBadRequest)
	case errors.Is(err, model.ErrAuthenticationFailed):
		http.Error(w, "authentication failed", http.StatusUnauthorized)
	case errors.Is(err, model.ErrForbidden):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, model.ErrValidation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrStoreUnavailable):
		h.logger.Warn(msg, append(fields, zap.Error(err))...)
		http.Error(w, "service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
