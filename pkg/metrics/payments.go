package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks gateway traffic and webhook outcomes.
type PaymentMetrics struct {
	webhookEvents  *prometheus.CounterVec
	confirmations  *prometheus.CounterVec
	gatewayErrors  *prometheus.CounterVec
	amountConfirmed prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paystack_webhook_events_total",
		Help: "Webhook deliveries received, by event and outcome.",
	}, []string{"event", "outcome"})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Confirmed payments, by method.",
	}, []string{"method"})
	gatewayErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paystack_request_errors_total",
		Help: "Failed Paystack API calls, by operation.",
	}, []string{"operation"})
	amountConfirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_confirmed_naira_total",
		Help: "Total confirmed payment volume in naira.",
	})
	reg.MustRegister(webhookEvents, confirmations, gatewayErrors, amountConfirmed)
	return &PaymentMetrics{
		webhookEvents:   webhookEvents,
		confirmations:   confirmations,
		gatewayErrors:   gatewayErrors,
		amountConfirmed: amountConfirmed,
	}
}

// IncWebhookEvent records a webhook delivery with its processing outcome.
func (p *PaymentMetrics) IncWebhookEvent(event, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// IncConfirmation records a confirmed payment and its naira volume.
func (p *PaymentMetrics) IncConfirmation(method string, amountNaira int64) {
	if p == nil || p.confirmations == nil {
		return
	}
	p.confirmations.WithLabelValues(normalizeLabel(method)).Inc()
	if amountNaira > 0 && p.amountConfirmed != nil {
		p.amountConfirmed.Add(float64(amountNaira))
	}
}

// IncGatewayError records a failed Paystack API call.
func (p *PaymentMetrics) IncGatewayError(operation string) {
	if p == nil || p.gatewayErrors == nil {
		return
	}
	p.gatewayErrors.WithLabelValues(normalizeLabel(operation)).Inc()
}
