package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/radiology-assistant/internal/assistant"
	"github.com/wolfman30/radiology-assistant/internal/fixtures"
	"github.com/wolfman30/radiology-assistant/internal/observability/metrics"
	"github.com/wolfman30/radiology-assistant/pkg/logging"
)

// Handler serves the REST surface.
type Handler struct {
	engine   Engine
	features assistant.Features
	voice    *fixtures.VoiceStub
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewHandler creates a Handler. voice may be nil when the feature is off.
func NewHandler(engine Engine, features assistant.Features, voice *fixtures.VoiceStub, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, features: features, voice: voice, gatherer: gatherer, logger: logger}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// State returns the current snapshot.
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

type submitRequest struct {
	Text string `json:"text"`
}

// PostMessage submits clinician input. The turn runs in the background.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.engine.SubmitAsync(req.Text); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.engine.Snapshot())
}

type reactionRequest struct {
	Reaction string `json:"reaction"`
}

// React toggles a reaction on an agent message.
func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req reactionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind := assistant.ReactionKind(req.Reaction)
	if kind != assistant.ReactionUp && kind != assistant.ReactionDown {
		writeError(w, http.StatusBadRequest, errors.New("reaction must be up or down"))
		return
	}
	if err := h.engine.React(id, kind); err != nil {
		h.writeEngineError(w, err)
		return
	}
	msg, _ := h.engine.Snapshot().Message(id)
	writeJSON(w, http.StatusOK, msg)
}

type phaseRequest struct {
	Phase int `json:"phase"`
}

// SetPhase switches phase and resets the session.
func (h *Handler) SetPhase(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.engine.SetPhase(assistant.Phase(req.Phase)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// StartDemo starts the demo script in the background.
func (h *Handler) StartDemo(w http.ResponseWriter, _ *http.Request) {
	if err := h.engine.StartDemo(); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.engine.Snapshot())
}

// Acknowledge dismisses a dashboard notification.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.engine.Acknowledge(id); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Worklist returns the sidebar exams.
func (h *Handler) Worklist(w http.ResponseWriter, _ *http.Request) {
	if !h.features.Sidebar {
		h.writeEngineError(w, assistant.ErrFeatureDisabled)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exams": fixtures.Worklist()})
}

// Voice runs the dictation stub and submits what it hears as if typed, so
// the busy, demo and empty-input rules apply.
func (h *Handler) Voice(w http.ResponseWriter, r *http.Request) {
	if !h.features.VoiceInput || h.voice == nil {
		h.writeEngineError(w, assistant.ErrFeatureDisabled)
		return
	}
	text, err := h.voice.Transcribe(r.Context())
	if err != nil {
		writeError(w, http.StatusRequestTimeout, err)
		return
	}
	if err := h.engine.SubmitAsync(text); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, voiceResponse{Text: text, Snapshot: h.engine.Snapshot()})
}

type voiceResponse struct {
	Text     string             `json:"text"`
	Snapshot assistant.Snapshot `json:"snapshot"`
}

// Stats returns turn counters aggregated from the metrics registry alongside
// the session counters.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"session": h.engine.Snapshot().Stats,
		"turns":   metrics.Summarize(h.gatherer),
	})
}

// Routes mounts the REST endpoints under the caller's prefix.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/state", h.State)
	r.Get("/stats", h.Stats)
	r.Post("/messages", h.PostMessage)
	r.Post("/messages/{id}/reactions", h.React)
	r.Post("/phase", h.SetPhase)
	r.Post("/demo", h.StartDemo)
	r.Post("/notifications/{id}/acknowledge", h.Acknowledge)
	r.Get("/worklist", h.Worklist)
	r.Post("/voice", h.Voice)
	return r
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, assistant.ErrEmptyInput), errors.Is(err, assistant.ErrInvalidPhase):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrMessageNotFound), errors.Is(err, assistant.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, assistant.ErrTurnInFlight), errors.Is(err, assistant.ErrDemoRunning),
		errors.Is(err, assistant.ErrNotReactable), errors.Is(err, assistant.ErrFeatureDisabled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("dashboard: engine error", "error", err)
	}
	writeError(w, status, err)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func originChecker(allowed []string) func(*http.Request) bool {
	allow := map[string]struct{}{}
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allow[o] = struct{}{}
		}
	}
	if len(allow) == 0 {
		return sameHost
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allow[origin]; ok {
			return true
		}
		return sameHost(r)
	}
}

func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
