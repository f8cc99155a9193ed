package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jubileehq/jubilee-backend/pkg/config"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
)

const requestTimeout = 15 * time.Second

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client wraps Paystack's REST API with centralized auth, retries, and error mapping.
type Client struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
	callback   string
	attempts   int
	backoff    time.Duration
	logger     *logger.Logger
}

// NewClient validates the credentials and builds the API wrapper.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	if !strings.HasPrefix(secretKey, "sk_") {
		return nil, fmt.Errorf("paystack secret key must start with sk_")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 60 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		secretKey:  secretKey,
		baseURL:    baseURL,
		callback:   strings.TrimSpace(cfg.CallbackURL),
		attempts:   attempts,
		backoff:    backoff,
		logger:     logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// SecretKey returns the configured secret, used for webhook signature checks.
func (c *Client) SecretKey() string {
	if c == nil {
		return ""
	}
	return c.secretKey
}

// InitializeParams describes a transaction initialization request.
type InitializeParams struct {
	Email       string
	AmountNaira int64
	Reference   string
	CallbackURL string
	Metadata    map[string]any
}

// Authorization is the checkout handle Paystack returns on initialize.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the subset of Paystack's transaction object we consume.
type Transaction struct {
	ID         int64          `json:"id"`
	Status     string         `json:"status"`
	Reference  string         `json:"reference"`
	AmountKobo int64          `json:"amount"`
	Currency   string         `json:"currency"`
	PaidAt     string         `json:"paid_at"`
	Channel    string         `json:"channel"`
	Customer   Customer       `json:"customer"`
	Metadata   map[string]any `json:"metadata"`
}

// Customer mirrors the customer block embedded in transactions.
type Customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Code  string `json:"customer_code"`
}

// VirtualAccount is a dedicated NUBAN assigned to a customer.
type VirtualAccount struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	Assigned      bool   `json:"assigned"`
}

// AmountNaira converts the kobo amount Paystack reports back to whole naira.
func (t Transaction) AmountNaira() int64 {
	return t.AmountKobo / 100
}

// Succeeded reports whether the transaction completed successfully.
func (t Transaction) Succeeded() bool {
	return strings.EqualFold(t.Status, "success")
}

// Initialize starts a gateway checkout. Amounts are naira here and kobo on the wire.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*Authorization, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	if params.AmountNaira <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	callback := params.CallbackURL
	if callback == "" {
		callback = c.callback
	}

	body := map[string]any{
		"email":    params.Email,
		"amount":   params.AmountNaira * 100,
		"currency": "NGN",
	}
	if params.Reference != "" {
		body["reference"] = params.Reference
	}
	if callback != "" {
		body["callback_url"] = callback
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	var auth Authorization
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Verify fetches the transaction state for the given reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	var txn Transaction
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

// CreateVirtualAccount requests a dedicated NUBAN for the customer code.
func (c *Client) CreateVirtualAccount(ctx context.Context, customerCode, preferredBank string) (*VirtualAccount, error) {
	customerCode = strings.TrimSpace(customerCode)
	if customerCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer code is required")
	}

	body := map[string]any{"customer": customerCode}
	if preferredBank != "" {
		body["preferred_bank"] = preferredBank
	}

	var account VirtualAccount
	if err := c.do(ctx, http.MethodPost, "/dedicated_account", body, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do executes a request and retries rate-limited or transient upstream failures.
func (c *Client) do(ctx context.Context, method, path string, body map[string]any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paystack request")
		}
		payload = encoded
	}

	backoff := retry.WithMaxRetries(uint64(c.attempts-1), retry.NewConstant(c.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack request failed"))
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response"))
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Warn(ctx, fmt.Sprintf("paystack rate limited (%s %s)", method, path))
			return retry.RetryableError(pkgerrors.New(pkgerrors.CodeRateLimit, "paystack rate limit exceeded"))
		case resp.StatusCode >= http.StatusInternalServerError:
			return retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack returned %s", resp.Status)))
		case resp.StatusCode >= http.StatusBadRequest:
			return mapAPIError(resp.StatusCode, raw)
		}

		var envelope apiEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack response")
		}
		if !envelope.Status {
			return pkgerrors.New(pkgerrors.CodeDependency, nonEmpty(envelope.Message, "paystack request rejected"))
		}
		if out != nil && len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack payload")
			}
		}
		return nil
	})
}

func mapAPIError(status int, raw []byte) error {
	var envelope apiEnvelope
	message := "paystack request failed"
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		message = envelope.Message
	}
	switch status {
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeDependency, message)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	}
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
