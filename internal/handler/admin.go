package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leadbox/leadbox/internal/export"
	"github.com/leadbox/leadbox/internal/model"
	"github.com/leadbox/leadbox/internal/server/middleware"
	"github.com/leadbox/leadbox/internal/store"
)

// Paths the admin pages redirect between.
const (
	AdminPath = "/admin"
	LoginPath = "/admin/login"
)

// LeadStore is the persistence the handlers need.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *model.Lead) error
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error)
	LeadStats(ctx context.Context) (model.LeadStats, error)
	UpdateLeadStatus(ctx context.Context, id int64, status model.Status) error
	DeleteLead(ctx context.Context, id int64) error
}

// CredentialChecker verifies admin credentials.
type CredentialChecker interface {
	Verify(username, password string) bool
}

// SessionManager starts and ends admin sessions.
type SessionManager interface {
	Login(w http.ResponseWriter) error
	Logout(w http.ResponseWriter)
}

// LoginView is the data for the login page.
type LoginView struct {
	Error string
}

// DashboardView is the data for the admin dashboard.
type DashboardView struct {
	Leads  []model.Lead
	Search string
	Stats  model.LeadStats
}

// AdminHandler serves the session-protected dashboard and its actions.
type AdminHandler struct {
	leads    LeadStore
	creds    CredentialChecker
	sessions SessionManager
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(leads LeadStore, creds CredentialChecker, sessions SessionManager, renderer Renderer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		leads:    leads,
		creds:    creds,
		sessions: sessions,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// LoginPage renders the login form.
// GET /admin/login
func (h *AdminHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, TemplateLogin, LoginView{})
}

// Login checks the submitted form and starts a session on success. A failed
// attempt re-renders the form with a generic error.
// POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, TemplateLogin, LoginView{Error: "Invalid credentials"})
		return
	}

	if !h.creds.Verify(r.PostFormValue("username"), r.PostFormValue("password")) {
		h.logger.Warn("admin login failed", "remote_addr", r.RemoteAddr, "request_id", middleware.GetRequestID(r.Context()))
		h.render(w, r, TemplateLogin, LoginView{Error: "Invalid credentials"})
		return
	}

	if err := h.sessions.Login(w); err != nil {
		h.serverError(w, r, "start session", err)
		return
	}
	h.logger.Info("admin logged in", "remote_addr", r.RemoteAddr, "request_id", middleware.GetRequestID(r.Context()))
	http.Redirect(w, r, AdminPath, http.StatusFound)
}

// Logout ends the session.
// GET /admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(w)
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

// ---------------------------------------------------------------------------
// Dashboard
// ---------------------------------------------------------------------------

// Dashboard lists leads newest first, optionally filtered by ?search=.
// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(queryString(r, "search"))

	leads, err := h.leads.ListLeads(r.Context(), model.LeadFilter{Search: search})
	if err != nil {
		h.serverError(w, r, "list leads", err)
		return
	}
	stats, err := h.leads.LeadStats(r.Context())
	if err != nil {
		h.serverError(w, r, "lead stats", err)
		return
	}

	h.render(w, r, TemplateAdmin, DashboardView{Leads: leads, Search: search, Stats: stats})
}

// MarkContacted moves a lead to contacted and returns to the dashboard.
// Unknown ids are ignored.
// GET /admin/mark/{id}
func (h *AdminHandler) MarkContacted(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, AdminPath, http.StatusFound)
		return
	}

	err := h.leads.UpdateLeadStatus(r.Context(), id, model.StatusContacted)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, r, "mark lead contacted", err)
		return
	}
	http.Redirect(w, r, AdminPath, http.StatusFound)
}

// Delete removes a lead and returns to the dashboard. Unknown ids are ignored.
// GET /admin/delete/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, AdminPath, http.StatusFound)
		return
	}

	err := h.leads.DeleteLead(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, r, "delete lead", err)
		return
	}
	if err == nil {
		h.logger.Info("lead deleted", "lead_id", id, "request_id", middleware.GetRequestID(r.Context()))
	}
	http.Redirect(w, r, AdminPath, http.StatusFound)
}

// Download streams every lead as a CSV attachment.
// GET /admin/download
func (h *AdminHandler) Download(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leads.ListLeads(r.Context(), model.LeadFilter{})
	if err != nil {
		h.serverError(w, r, "list leads", err)
		return
	}

	data, err := export.CSV(leads)
	if errors.Is(err, export.ErrNoData) {
		writeText(w, http.StatusOK, export.ErrNoData.Error())
		return
	}
	if err != nil {
		h.serverError(w, r, "export leads", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(h.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *AdminHandler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := renderPage(w, h.renderer, http.StatusOK, name, data); err != nil {
		h.logger.Error("render page", "template", name, "error", err, "request_id", middleware.GetRequestID(r.Context()))
	}
}

func (h *AdminHandler) serverError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, "error", err, "request_id", middleware.GetRequestID(r.Context()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
