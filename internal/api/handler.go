package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/verilayer/lavs/internal/domain"
	"github.com/verilayer/lavs/internal/pipeline"
	"github.com/verilayer/lavs/internal/rules"
)

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	pipeline *pipeline.Pipeline
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	engine   *rules.Engine
	profiles *domain.WeightProfiles
	version  string

	maxUploadBytes int64
}

// NewHandler creates an API handler. repo, cache, and bus are only used for
// health reporting and rule listing; any of them may be nil.
func NewHandler(p *pipeline.Pipeline, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, profiles *domain.WeightProfiles, version string, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	return &Handler{
		pipeline:       p,
		repo:           repo,
		cache:          cache,
		bus:            bus,
		engine:         engine,
		profiles:       profiles,
		version:        version,
		maxUploadBytes: maxUploadBytes,
	}
}

// urlRequest is the JSON body for link submissions.
type urlRequest struct {
	URL string `json:"url"`
}

// Verify handles POST /api/v1/verify. It accepts either a multipart form with
// a "file" part, or a JSON body {"url": "..."}.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	art, err := h.readArtifact(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pipeline.Evaluate(r.Context(), art)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyArtifact) {
			writeError(w, http.StatusBadRequest, "submission carries no content")
			return
		}
		slog.Error("evaluation failed", "artifact_id", art.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	writeJSON(w, http.StatusOK, result.ToResponse())
}

// readArtifact extracts the submission from the request. File uploads are
// size-limited; the declared content type and filename travel along as
// untrusted hints.
func (h *Handler) readArtifact(r *http.Request) (*domain.Artifact, error) {
	art := &domain.Artifact{
		ID:         uuid.New().String(),
		ReceivedAt: time.Now().UTC(),
	}

	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(nil, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return nil, errors.New("upload too large or malformed")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("missing file part")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, errors.New("failed to read upload")
		}

		art.Bytes = data
		art.Filename = header.Filename
		art.DeclaredMIME = header.Header.Get("Content-Type")
		if u := r.FormValue("url"); u != "" {
			art.URL = u
		}
		return art, nil
	}

	var req urlRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		return nil, errors.New("invalid request body")
	}
	if req.URL == "" {
		return nil, errors.New("url is required for JSON submissions")
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		return nil, errors.New("url must be http or https")
	}

	art.URL = req.URL
	return art, nil
}

// ListRules handles GET /api/v1/rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusOK, map[string]any{"rules": []any{}, "count": 0})
		return
	}
	loaded := h.engine.LoadedRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRule handles GET /api/v1/rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.engine != nil {
		for _, rule := range h.engine.LoadedRules() {
			if rule.ID == id {
				writeJSON(w, http.StatusOK, rule)
				return
			}
		}
	}
	writeError(w, http.StatusNotFound, "rule not found")
}

// GetProfiles handles GET /api/v1/profiles.
func (h *Handler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		writeJSON(w, http.StatusOK, domain.DefaultWeightProfiles())
		return
	}
	writeJSON(w, http.StatusOK, h.profiles)
}

// Health handles GET /health. It pings every backing component and reports
// degraded if any of them fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	ping := func(name string, fn func() error) {
		if fn == nil {
			return
		}
		if err := fn(); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	if h.repo != nil {
		ping("repository", func() error { return h.repo.Ping(r.Context()) })
	}
	if h.cache != nil {
		ping("cache", func() error { return h.cache.Ping(r.Context()) })
	}
	if h.bus != nil {
		ping("bus", func() error { return h.bus.Ping(r.Context()) })
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. The service is ready as soon as the pipeline is
// wired.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
