package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akademi-app/akademi/internal/authz"
	"github.com/akademi-app/akademi/internal/platform/httpx"
)

// signatureHeader carries the provider's HMAC over the raw body.
const signatureHeader = "X-Billing-Signature"

// maxWebhookBody caps webhook payload reads at 1 MiB.
const maxWebhookBody = 1 << 20

// Handler wires HTTP endpoints for billing.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the billing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountWebhookRoutes registers the unauthenticated provider callback. The
// shared-secret signature is the only authentication on this route.
func (h *Handler) MountWebhookRoutes(r chi.Router) {
	r.Post("/webhooks/billing", h.webhook)
}

// MountCompanyRoutes registers subscription views inside the company
// scope, behind the authorization guard.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/subscriptions", h.listSubscriptions)
}

type webhookPayload struct {
	EventID        string `json:"event_id"`
	Type           string `json:"type"`
	RegistrationID int64  `json:"registration_id"`
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.VerifySignature(body, r.Header.Get(signatureHeader)); err != nil {
		h.logger.Warn("billing webhook signature mismatch", slog.String("remote", r.RemoteAddr))
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.EventID == "" || payload.Type == "" || payload.RegistrationID <= 0 {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	err = h.service.IngestEvent(r.Context(), Event{
		ProviderID:     payload.EventID,
		Type:           payload.Type,
		RegistrationID: payload.RegistrationID,
		Payload:        body,
	})
	switch {
	case errors.Is(err, ErrDuplicateEvent):
		// Providers retry aggressively; a replay is success to them.
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
	case err != nil:
		h.logger.Error("billing webhook ingest", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	default:
		httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	ev, membership, ok := authz.RequireDecision(w, r)
	if !ok {
		return
	}
	// Subscription visibility rides on the capability that opens
	// subscriptions: whoever may manage billing may read it, nobody else.
	if ev.Cannot(authz.ActionCreateSubscription, authz.ResourceCompany) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	subs, err := h.service.ListSubscriptions(r.Context(), membership.CompanyID)
	if err != nil {
		h.logger.Error("list subscriptions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	type subscriptionView struct {
		Subscription
		Amount string `json:"amount"`
	}
	views := make([]subscriptionView, len(subs))
	for i, sub := range subs {
		views[i] = subscriptionView{Subscription: sub, Amount: FormatAmount(sub.AmountCents, sub.Currency)}
	}
	httpx.JSON(w, http.StatusOK, views)
}
