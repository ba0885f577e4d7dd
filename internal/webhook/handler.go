package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cexll/triagebot/internal/dispatcher"
	"github.com/cexll/triagebot/internal/github"
)

// maxPayloadBytes matches the GitHub webhook payload cap.
const maxPayloadBytes = 25 << 20

// Runner processes one parsed delivery.
type Runner interface {
	Run(ctx context.Context, event *github.Context) (*dispatcher.Result, error)
}

// Handler handles GitHub webhook deliveries. Each delivery is one run.
type Handler struct {
	runner     Runner
	deliveries *deliveryDeduper
	logger     logrus.FieldLogger
}

// NewHandler creates a new webhook handler. Delivery IDs seen within ttl are
// acknowledged without running again.
func NewHandler(runner Runner, ttl time.Duration, logger logrus.FieldLogger) *Handler {
	return &Handler{
		runner:     runner,
		deliveries: newDeliveryDeduper(ttl),
		logger:     logger,
	}
}

// NewRouter wires the webhook and health endpoints.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/webhook", h.Handle).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	return r
}

// Handle handles GitHub webhook events (issues and issue comments)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	// 1. Read payload
	payload, err := readPayload(r.Body)
	if err != nil {
		h.logger.WithError(err).Warn("Error reading payload")
		status := http.StatusBadRequest
		if errors.Is(err, ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "Error reading payload", status)
		return
	}

	// 2. Determine event type
	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		http.Error(w, ErrMissingEvent.Error(), http.StatusBadRequest)
		return
	}
	deliveryID := r.Header.Get("X-GitHub-Delivery")
	log := h.logger.WithFields(logrus.Fields{"event": eventType, "delivery": deliveryID})

	// 3. Parse
	event, err := github.ParseWebhookEvent(eventType, payload)
	if errors.Is(err, github.ErrUnsupportedEvent) {
		log.Debug("Event ignored")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Event ignored"))
		return
	}
	if err != nil {
		log.WithError(err).Warn("Failed to parse webhook")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	event.DeliveryID = deliveryID

	// 4. Skip redeliveries that already succeeded
	if deliveryID != "" && !h.deliveries.markIfNew(deliveryID) {
		log.Info("Duplicate delivery, skipping")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Duplicate delivery"))
		return
	}

	// 5. Run
	result, err := h.runner.Run(r.Context(), event)
	if err != nil {
		h.release(deliveryID)
		log.WithError(err).Error("Run could not start")
		http.Error(w, "Run failed", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if result.Failed() {
		h.release(deliveryID)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, summarize(event, result))
}

func (h *Handler) release(deliveryID string) {
	if deliveryID != "" {
		h.deliveries.forget(deliveryID)
	}
}

func readPayload(body io.Reader) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(body, maxPayloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > maxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
