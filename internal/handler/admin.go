package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/offer-system/internal/images"
	"github.com/mmeshcher/offer-system/internal/model"
)

const maxUploadSize = 10 << 20

type offerRequest struct {
	Title          string   `json:"title"`
	RestaurantName string   `json:"restaurantName"`
	Location       string   `json:"location"`
	PhoneNumber    string   `json:"phoneNumber"`
	Description    string   `json:"description"`
	ValidDays      []string `json:"validDays"`
	StartTime      *string  `json:"startTime"`
	EndTime        *string  `json:"endTime"`
	ImportantNote  *string  `json:"importantNote"`
	ImageURL       string   `json:"imageUrl"`
	IsActive       *bool    `json:"isActive"`
}

func (req offerRequest) input() model.OfferInput {
	return model.OfferInput{
		Title:          req.Title,
		RestaurantName: req.RestaurantName,
		Location:       req.Location,
		PhoneNumber:    req.PhoneNumber,
		Description:    req.Description,
		ValidDays:      req.ValidDays,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		ImportantNote:  req.ImportantNote,
		ImageURL:       req.ImageURL,
	}
}

func (req offerRequest) patch() model.OfferPatch {
	return model.OfferPatch{
		Title:          req.Title,
		RestaurantName: req.RestaurantName,
		Location:       req.Location,
		PhoneNumber:    req.PhoneNumber,
		Description:    req.Description,
		ValidDays:      req.ValidDays,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		ImportantNote:  req.ImportantNote,
		IsActive:       req.IsActive,
	}
}

// CreateOffer создаёт предложение. Принимает JSON или multipart-форму с файлом image.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var (
		req    offerRequest
		upload *images.Upload
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var (
			err     error
			cleanup func()
		)
		req, upload, cleanup, err = parseOfferForm(w, r)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		defer cleanup()
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	offer, err := h.service.CreateOffer(r.Context(), req.input(), upload)
	if err != nil {
		h.writeError(w, err, "create offer error")
		return
	}

	h.writeJSON(w, http.StatusCreated, toOfferResponse(model.OfferView{Offer: *offer}))
}

// parseOfferForm разбирает multipart-форму. validDays передаётся повторяющимся полем
// или одной строкой через запятую.
func parseOfferForm(w http.ResponseWriter, r *http.Request) (offerRequest, *images.Upload, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return offerRequest{}, nil, noop, err
	}

	form := r.MultipartForm
	req := offerRequest{
		Title:          r.FormValue("title"),
		RestaurantName: r.FormValue("restaurantName"),
		Location:       r.FormValue("location"),
		PhoneNumber:    r.FormValue("phoneNumber"),
		Description:    r.FormValue("description"),
		StartTime:      optionalFormValue(form.Value, "startTime"),
		EndTime:        optionalFormValue(form.Value, "endTime"),
		ImportantNote:  optionalFormValue(form.Value, "importantNote"),
		ImageURL:       r.FormValue("imageUrl"),
	}
	for _, v := range form.Value["validDays"] {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				req.ValidDays = append(req.ValidDays, d)
			}
		}
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, func() { _ = form.RemoveAll() }, nil
	}
	if err != nil {
		_ = form.RemoveAll()
		return offerRequest{}, nil, noop, err
	}

	upload := &images.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	cleanup := func() {
		_ = file.Close()
		_ = form.RemoveAll()
	}
	return req, upload, cleanup, nil
}

func optionalFormValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 || v[0] == "" {
		return nil
	}
	return &v[0]
}

// UpdateOffer частично обновляет предложение.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	offer, err := h.service.UpdateOffer(r.Context(), offerID, req.patch())
	if err != nil {
		h.writeError(w, err, "update offer error", zap.String("offerID", offerID.String()))
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferResponse(model.OfferView{Offer: *offer}))
}

// DeactivateOffer выключает предложение.
func (h *Handler) DeactivateOffer(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// ActivateOffer включает предложение.
func (h *Handler) ActivateOffer(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	offer, err := h.service.SetOfferActive(r.Context(), offerID, active)
	if err != nil {
		h.writeError(w, err, "set offer active error", zap.String("offerID", offerID.String()), zap.Bool("active", active))
		return
	}

	h.writeJSON(w, http.StatusOK, toOfferResponse(model.OfferView{Offer: *offer}))
}

// DeleteOffer удаляет предложение.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	offerID, ok := offerIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOffer(r.Context(), offerID); err != nil {
		h.writeError(w, err, "delete offer error", zap.String("offerID", offerID.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
