// Package httpapi exposes the formpilot service over HTTP: watchdog status,
// registration runs, snapshot export/import, and history.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voralis/formpilot/regflow"
	"github.com/voralis/formpilot/service"
	"github.com/voralis/formpilot/store"
)

// API serves the formpilot HTTP surface.
type API struct {
	svc    *service.Service
	logger *slog.Logger
}

// New creates the API front over a service.
func New(svc *service.Service, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{svc: svc, logger: logger}
}

// Router builds the chi router with the full route set.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/status", a.handleStatus)
	r.Get("/history", a.handleHistory)
	r.Post("/register", a.handleRegister)
	r.Post("/restore", a.handleRestore)
	r.Post("/recommend", a.handleRecommend)
	r.Get("/export", a.handleExport)
	r.Post("/import", a.handleImport)

	return r
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("httpapi: encode response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Status(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, st)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, errors.New("limit must be an integer"))
			return
		}
		limit = n
	}
	recs, err := a.svc.History(r.Context(), limit)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	a.writeJSON(w, http.StatusOK, recs)
}

type registerRequest struct {
	Profile string `json:"profile"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	res, err := a.svc.Register(r.Context(), req.Profile)
	if err != nil {
		var use *regflow.UnknownStrategyError
		switch {
		case errors.As(err, &use):
			a.writeError(w, http.StatusBadRequest, err)
		case isValidation(err):
			a.writeError(w, http.StatusUnprocessableEntity, err)
		default:
			a.writeError(w, http.StatusBadGateway, err)
		}
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func isValidation(err error) bool {
	var mf *regflow.MissingFieldError
	var wp *regflow.WeakPasswordError
	return errors.As(err, &mf) || errors.As(err, &wp) ||
		errors.Is(err, regflow.ErrEmailTooShort)
}

func (a *API) handleRestore(w http.ResponseWriter, r *http.Request) {
	n := a.svc.Restore(r.Context())
	a.writeJSON(w, http.StatusOK, map[string]int{"restored": n})
}

func (a *API) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var rc regflow.RecommendContext
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&rc); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"profile": a.svc.Recommend(rc)})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	b, err := a.svc.Export(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.writeJSON(w, http.StatusOK, b)
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	var b store.Backup
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := a.svc.Import(r.Context(), &b)
	if err != nil {
		a.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]int{"restored": n})
}
