package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/offer-system/internal/redemption"
	"github.com/mmeshcher/offer-system/internal/service"
)

// ListOffers возвращает ленту предложений текущего пользователя.
// Параметр q задаёт нечёткий поиск, hideClaimed скрывает использованные.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	opts := service.ListOptions{Query: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("hideClaimed"); v != "" {
		hide, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid hideClaimed", http.StatusBadRequest)
			return
		}
		opts.HideClaimed = hide
	}

	views, err := h.service.ListOffers(r.Context(), userID, opts)
	if err != nil {
		h.writeError(w, err, "list offers error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferResponses(views))
}

// GetOffer возвращает одно предложение.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetOffer(r.Context(), userID, offerID)
	if err != nil {
		h.writeError(w, err, "get offer error", zap.String("offerID", offerID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferResponse(*view))
}

// ToggleLike переключает лайк и возвращает обновлённое предложение.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.ToggleLike(r.Context(), userID, offerID)
	if err != nil {
		h.writeError(w, err, "toggle like error", zap.Int64("userID", userID), zap.String("offerID", offerID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferResponse(*view))
}

// ToggleSave переключает сохранение и возвращает список сохранённых идентификаторов.
func (h *Handler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	saved, err := h.service.ToggleSave(r.Context(), userID, offerID)
	if err != nil {
		h.writeError(w, err, "toggle save error", zap.Int64("userID", userID), zap.String("offerID", offerID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toSavedResponse(saved))
}

// Claim отмечает предложение использованным без подтверждения кодом.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Claim(r.Context(), userID, offerID); err != nil {
		h.writeError(w, err, "claim offer error", zap.Int64("userID", userID), zap.String("offerID", offerID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, claimResponse{OfferID: offerID.String(), Claimed: true})
}

// StartRedemption возвращает код погашения предложения.
func (h *Handler) StartRedemption(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	ch, err := h.service.StartRedemption(r.Context(), userID, offerID)
	if err != nil {
		h.writeError(w, err, "start redemption error", zap.Int64("userID", userID), zap.String("offerID", offerID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, challengeResponse{
		OfferID: ch.OfferID.String(),
		UserID:  ch.UserID,
		Payload: ch.Payload,
	})
}

// RedemptionQR возвращает код погашения в виде PNG.
func (h *Handler) RedemptionQR(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	ch, err := h.service.StartRedemption(r.Context(), userID, offerID)
	if err != nil {
		h.writeError(w, err, "start redemption error", zap.Int64("userID", userID), zap.String("offerID", offerID.String()))
		return
	}

	png, err := redemption.QRCode(ch.Payload)
	if err != nil {
		h.writeError(w, err, "render qr error", zap.String("offerID", offerID.String()))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

type redemptionRequest struct {
	Payload string `json:"payload"`
}

func decodePayload(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req redemptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return "", false
	}
	return req.Payload, true
}

// ConfirmRedemption подтверждает погашение по отсканированному коду.
func (h *Handler) ConfirmRedemption(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	offerID, err := h.service.ConfirmRedemption(r.Context(), userID, payload)
	if err != nil {
		h.writeError(w, err, "confirm redemption error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, claimResponse{OfferID: offerID.String(), Claimed: true})
}

// VerifyRedemption проверяет код для сотрудника ресторана.
func (h *Handler) VerifyRedemption(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	v, err := h.service.VerifyRedemption(r.Context(), payload)
	if err != nil {
		h.writeError(w, err, "verify redemption error")
		return
	}

	h.writeJSON(w, http.StatusOK, verificationResponse{
		OfferID:        v.OfferID.String(),
		OfferTitle:     v.OfferTitle,
		RestaurantName: v.Restaurant,
		UserID:         v.UserID,
		IsActive:       v.IsActive,
		Pending:        v.Pending,
	})
}
