package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"textgen/internal/conversation"
	"textgen/internal/textgen"
	"textgen/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Generate(ctx context.Context, text string) (textgen.Result, error)
	Converse(ctx context.Context, id, text string) (*conversation.Conversation, error)
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the router for svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	h := &handlers{svc: svc}
	r.Post("/text-generation/generate", h.generate)
	r.Post("/conversation/conversation", h.conversation)
	r.Get("/status", h.status)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// generate godoc
// @Summary      Continue a text prompt
// @Description  Generates a continuation of the prompt. The prompt itself is not repeated in "generated".
// @Tags         text-generation
// @Accept       json
// @Produce      json
// @Param        request  body      types.GenerateRequest  true  "Prompt"
// @Success      200      {object}  types.GenerateResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Router       /text-generation/generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "generate", len(*req.Text))
	ctx, cancel := requestContext(r)
	defer cancel()

	res, err := h.svc.Generate(ctx, *req.Text)
	if err != nil {
		h.fail(w, r, lvl, "generate", start, err)
		return
	}
	logDebug(r, lvl, "generate detail", map[string]any{
		"prompt_tokens": res.PromptTokens,
		"output_tokens": res.OutputTokens,
		"budget":        res.Budget,
		"short":         res.Short,
	})
	writeJSON(w, types.GenerateResponse{Input: res.Input, Generated: res.Generated})
	logEnd(r, lvl, "generate", http.StatusOK, start, nil)
}

// conversation godoc
// @Summary      Talk to the model
// @Description  Adds a user turn to a conversation and returns the whole conversation. Omit conversation_id to start a new one.
// @Tags         conversation
// @Accept       json
// @Produce      json
// @Param        request  body      types.ConversationRequest  true  "Utterance"
// @Success      200      {object}  types.ConversationResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Router       /conversation/conversation [post]
func (h *handlers) conversation(w http.ResponseWriter, r *http.Request) {
	var req types.ConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, "conversation", len(*req.Text))
	ctx, cancel := requestContext(r)
	defer cancel()

	conv, err := h.svc.Converse(ctx, strings.TrimSpace(req.ConversationID), *req.Text)
	if err != nil {
		h.fail(w, r, lvl, "conversation", start, err)
		return
	}
	writeJSON(w, types.ConversationResponse{Conversation: conv.String(), ConversationID: conv.ID()})
	logEnd(r, lvl, "conversation", http.StatusOK, start, nil)
}

// fail writes the error response for err, or nothing when the client is gone
// or the server is shutting down.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, lvl LogLevel, op string, start time.Time, err error) {
	if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
		logEnd(r, lvl, op, 499, start, err)
		return
	}
	status := statusForError(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("admission")
	}
	writeJSONError(w, status, err.Error())
	logEnd(r, lvl, op, status, start, err)
}

// status godoc
// @Summary      Service status
// @Tags         ops
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.Status())
}

// healthz godoc
// @Summary  Liveness probe
// @Tags     ops
// @Produce  plain
// @Success  200  {string}  string  "ok"
// @Router   /healthz [get]
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readyz godoc
// @Summary  Readiness probe
// @Tags     ops
// @Produce  plain
// @Success  200  {string}  string  "ready"
// @Failure  503  {string}  string  "loading"
// @Router   /readyz [get]
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.svc.Ready() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("loading"))
}

// decodeJSON enforces the JSON content type and body limit and decodes the
// body into dst. It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusBadRequest, "request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeJSON encodes v before sending anything, so an encoding failure can
// still become a clean 500.
func writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
