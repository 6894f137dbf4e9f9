package gateway

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"payment-service/internal/util"

	"go.uber.org/zap"
)

const (
	sandboxSnapHost = "https://app.sandbox.midtrans.com"
	sandboxAPIHost  = "https://api.sandbox.midtrans.com"
	prodSnapHost    = "https://app.midtrans.com"
	prodAPIHost     = "https://api.midtrans.com"
)

// ErrInvalidSignature is returned when a notification's signature_key does
// not match the payload.
var ErrInvalidSignature = errors.New("invalid notification signature")

// Client talks to the payment gateway: the checkout (Snap) API for session
// tokens and the core API for transaction status.
type Client struct {
	httpClient *http.Client
	serverKey  string
	snapHost   string
	apiHost    string
	logger     *zap.Logger
}

// NewClient creates a gateway client for the sandbox or production
// environment.
func NewClient(serverKey string, production bool) *Client {
	snapHost, apiHost := sandboxSnapHost, sandboxAPIHost
	if production {
		snapHost, apiHost = prodSnapHost, prodAPIHost
	}

	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		serverKey:  serverKey,
		snapHost:   snapHost,
		apiHost:    apiHost,
		logger:     util.GetLogger(),
	}
}

// SessionParams describes a checkout session to create
type SessionParams struct {
	OrderID       string
	GrossAmount   int64
	CustomerName  string
	CustomerEmail string
}

// Session is the gateway's response to session creation
type Session struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// TransactionStatus is the normalized notification payload. Raw carries the
// exact body it was decoded from, for audit storage.
type TransactionStatus struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	TransactionTime   string `json:"transaction_time"`
	SignatureKey      string `json:"signature_key"`

	Raw json.RawMessage `json:"-"`
}

type sessionRequest struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	CreditCard         creditCard         `json:"credit_card"`
	CustomerDetails    customerDetails    `json:"customer_details"`
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type creditCard struct {
	Secure bool `json:"secure"`
}

type customerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

type apiError struct {
	ErrorMessages []string `json:"error_messages"`
	StatusMessage string   `json:"status_message"`
}

func (e *apiError) message() string {
	if len(e.ErrorMessages) > 0 {
		return strings.Join(e.ErrorMessages, "; ")
	}
	return e.StatusMessage
}

// CreateSession creates a checkout session and returns its opaque token.
// Customer fields fall back to guest defaults when absent.
func (c *Client) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues("create_session").Observe(time.Since(start).Seconds())
	}()

	if params.CustomerName == "" {
		params.CustomerName = "Guest"
	}
	if params.CustomerEmail == "" {
		params.CustomerEmail = "guest@example.com"
	}

	body, err := json.Marshal(sessionRequest{
		TransactionDetails: transactionDetails{
			OrderID:     params.OrderID,
			GrossAmount: params.GrossAmount,
		},
		CreditCard: creditCard{Secure: true},
		CustomerDetails: customerDetails{
			FirstName: params.CustomerName,
			Email:     params.CustomerEmail,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.snapHost+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.prepare(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway session request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		return nil, fmt.Errorf("gateway rejected session creation (HTTP %d): %s", resp.StatusCode, apiErr.message())
	}

	var session Session
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.Token == "" {
		return nil, fmt.Errorf("gateway returned empty session token")
	}

	c.logger.Info("Gateway session created", zap.String("order_id", params.OrderID))
	return &session, nil
}

// VerifyNotification authenticates an inbound webhook payload. It checks the
// embedded signature against the server key, then fetches the authoritative
// transaction status from the core API so the stored state never depends on
// caller-supplied fields alone.
func (c *Client) VerifyNotification(ctx context.Context, payload []byte) (*TransactionStatus, error) {
	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues("verify_notification").Observe(time.Since(start).Seconds())
	}()

	var inbound TransactionStatus
	if err := json.Unmarshal(payload, &inbound); err != nil {
		return nil, fmt.Errorf("malformed notification payload: %w", err)
	}
	if inbound.OrderID == "" {
		return nil, fmt.Errorf("notification payload missing order_id")
	}

	expected := c.signature(inbound.OrderID, inbound.StatusCode, inbound.GrossAmount)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(inbound.SignatureKey)) != 1 {
		return nil, fmt.Errorf("%w: order_id=%s", ErrInvalidSignature, inbound.OrderID)
	}

	return c.fetchStatus(ctx, inbound.OrderID)
}

// fetchStatus retrieves the current transaction status from the core API
func (c *Client) fetchStatus(ctx context.Context, orderID string) (*TransactionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiHost+"/v2/"+orderID+"/status", nil)
	if err != nil {
		return nil, err
	}
	c.prepare(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway status request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		return nil, fmt.Errorf("gateway status fetch failed (HTTP %d): %s", resp.StatusCode, apiErr.message())
	}

	var status TransactionStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	status.Raw = respBody

	return &status, nil
}

// signature computes the sha512 hex digest the gateway embeds in
// notifications: order_id + status_code + gross_amount + server_key.
func (c *Client) signature(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + c.serverKey))
	return hex.EncodeToString(sum[:])
}

func (c *Client) prepare(req *http.Request) {
	req.SetBasicAuth(c.serverKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
