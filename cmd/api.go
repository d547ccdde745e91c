package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/docstore"
	"github.com/sells-group/takeoff-cli/internal/jobs"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/store"
)

// api exposes the analysis pipeline over HTTP. Uploads land in the document
// store; the runner decides whether jobs execute inline or on workers.
type api struct {
	docs      docstore.Storage
	runner    jobs.Runner
	maxUpload int64
	log       *zap.Logger
}

func newAPI(docs docstore.Storage, runner jobs.Runner, maxUpload int64) *api {
	return &api{
		docs:      docs,
		runner:    runner,
		maxUpload: maxUpload,
		log:       zap.L().Named("api"),
	}
}

func (a *api) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", a.handleAnalyze)
		r.Get("/jobs", a.handleListJobs)
		r.Get("/jobs/{id}", a.handleGetJob)
	})

	return r
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts a multipart form with either a "document" file or a
// "text" field, plus optional "materials" (comma separated) and "tax_rate".
func (a *api) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		a.writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: parse multipart form"))
		return
	}

	req := model.AnalysisRequest{
		RawText: r.FormValue("text"),
	}
	if v := r.FormValue("materials"); v != "" {
		for _, id := range strings.Split(v, ",") {
			req.MaterialIDs = append(req.MaterialIDs, strings.TrimSpace(id))
		}
	}
	if v := r.FormValue("tax_rate"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: parse tax_rate"))
			return
		}
		req.TaxRate = rate
	}

	if file, header, err := r.FormFile("document"); err == nil {
		defer file.Close()
		stored, err := a.docs.Store(r.Context(), header.Filename, file, header.Size)
		if err != nil {
			a.writeError(w, statusFor(err), err)
			return
		}
		req.DocumentHandle = stored.Handle
	}

	job, err := a.runner.Submit(r.Context(), req)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}

	status := http.StatusAccepted
	if job.Status.Terminal() {
		status = http.StatusOK
	}
	writeJSON(w, status, job)
}

func (a *api) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.runner.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *api) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := store.JobFilter{
		Status: model.JobStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: parse limit"))
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, eris.Wrap(err, "api: parse offset"))
			return
		}
		filter.Offset = n
	}

	list, err := a.runner.List(r.Context(), filter)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": list})
}

func statusFor(err error) int {
	switch {
	case eris.Is(err, jobs.ErrValidation), eris.Is(err, docstore.ErrInvalidDocument):
		return http.StatusBadRequest
	case eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
