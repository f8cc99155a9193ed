package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jubileehq/jubilee-backend/api/responses"
	paystackwebhook "github.com/jubileehq/jubilee-backend/internal/webhooks/paystack"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/metrics"
)

// Paystack retries deliveries aggressively; cap the body to keep a bad actor
// from streaming an unbounded payload at the handler.
const maxWebhookBody = 1 << 20

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, reference string) (bool, error)
	Release(ctx context.Context, reference string) error
}

// PaystackParams bundles the webhook handler dependencies.
type PaystackParams struct {
	Service   *paystackwebhook.Service
	Guard     deliveryGuard
	SecretKey string
	Metrics   *metrics.PaymentMetrics
	Logger    *logger.Logger
}

// Paystack receives signed Paystack deliveries, deduplicates them on the
// charge reference, and hands verified events to the webhook service. Non-2xx
// responses make Paystack retry, so only transient failures return 5xx.
func Paystack(params PaystackParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			params.Metrics.IncWebhookEvent("unknown", "read_error")
			responses.WriteError(ctx, params.Logger, w, pkgerrors.New(pkgerrors.CodeValidation, "unreadable body"))
			return
		}

		if !paystackwebhook.VerifySignature(params.SecretKey, body, r.Header.Get(paystackwebhook.SignatureHeader)) {
			params.Metrics.IncWebhookEvent("unknown", "bad_signature")
			responses.WriteError(ctx, params.Logger, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		var event paystackwebhook.Event
		if err := json.Unmarshal(body, &event); err != nil {
			params.Metrics.IncWebhookEvent("unknown", "bad_payload")
			responses.WriteError(ctx, params.Logger, w, pkgerrors.New(pkgerrors.CodeValidation, "malformed event"))
			return
		}

		reference := event.ChargeReference()
		if reference != "" && params.Guard != nil {
			seen, err := params.Guard.CheckAndMark(ctx, reference)
			if err != nil {
				params.Metrics.IncWebhookEvent(event.Event, "guard_error")
				responses.WriteError(ctx, params.Logger, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedupe"))
				return
			}
			if seen {
				params.Metrics.IncWebhookEvent(event.Event, "duplicate")
				responses.WriteSuccess(w, map[string]string{"status": "already_processed"})
				return
			}
		}

		if err := params.Service.HandleEvent(ctx, &event); err != nil {
			if reference != "" && params.Guard != nil {
				if relErr := params.Guard.Release(ctx, reference); relErr != nil && params.Logger != nil {
					params.Logger.Warn(params.Logger.WithField(ctx, "reference", reference), "failed to release webhook dedupe mark")
				}
			}
			params.Metrics.IncWebhookEvent(event.Event, "error")
			responses.WriteError(ctx, params.Logger, w, err)
			return
		}

		params.Metrics.IncWebhookEvent(event.Event, "processed")
		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
