package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/leadbox/leadbox/internal/model"
	"github.com/leadbox/leadbox/internal/server/middleware"
)

// maxContactBody bounds the JSON body accepted by the contact endpoint.
const maxContactBody = 64 << 10

// ContactHandler serves the public landing page and the contact form API.
type ContactHandler struct {
	leads    LeadStore
	renderer Renderer
	logger   *slog.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(leads LeadStore, renderer Renderer, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{leads: leads, renderer: renderer, logger: logger}
}

// Home renders the landing page with the contact form.
// GET /
func (h *ContactHandler) Home(w http.ResponseWriter, r *http.Request) {
	if err := renderPage(w, h.renderer, http.StatusOK, TemplateIndex, nil); err != nil {
		h.logger.Error("render landing page", "error", err, "request_id", middleware.GetRequestID(r.Context()))
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Submit stores a contact form submission. Every client-side failure gets the
// same {"status":"error"} body.
// POST /contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeJSON(w, http.StatusBadRequest, model.StatusResponse{Status: model.ResultError})
		return
	}

	var req contactRequest
	body := http.MaxBytesReader(w, r.Body, maxContactBody)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.StatusResponse{Status: model.ResultError})
		return
	}

	lead, err := model.NewLead(req.Name, req.Phone, req.Message)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.StatusResponse{Status: model.ResultError})
		return
	}

	if err := h.leads.CreateLead(r.Context(), lead); err != nil {
		h.logger.Error("store lead", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, model.StatusResponse{Status: model.ResultError})
		return
	}

	h.logger.Info("lead received", "lead_id", lead.ID, "request_id", middleware.GetRequestID(r.Context()))
	writeJSON(w, http.StatusOK, model.StatusResponse{Status: model.ResultSuccess})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
