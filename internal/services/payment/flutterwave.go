package payment

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
)

// CheckoutRequest describes a hosted checkout session
type CheckoutRequest struct {
	TxRef         string
	Amount        float64
	Currency      string
	CustomerEmail string
	CustomerName  string
	Title         string
	Description   string
	Meta          map[string]string
}

// Verification is the gateway's view of a transaction
type Verification struct {
	TransactionID string
	TxRef         string
	Status        string
	Amount        float64
	Currency      string
}

// Gateway is the hosted checkout provider
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
	VerifyByReference(ctx context.Context, txRef string) (*Verification, error)
}

// Gateway transaction statuses
const (
	GatewaySuccessful = "successful"
	GatewayPending    = "pending"
)

// ErrTransactionNotFound means the gateway has no transaction for a tx_ref,
// i.e. the customer never submitted the checkout
var ErrTransactionNotFound = errors.New("payment gateway has no transaction for this reference")

// StatusError is a non-success response from the gateway API
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment gateway returned status %d: %s", e.StatusCode, e.Message)
}

// FlutterwaveClient talks to the Flutterwave v3 REST API
type FlutterwaveClient struct {
	baseURL     string
	secretKey   string
	redirectURL string
	client      *http.Client
}

func NewFlutterwaveClient(cfg config.PaymentConfig) *FlutterwaveClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FlutterwaveClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		redirectURL: cfg.RedirectURL,
		client:      &http.Client{Timeout: timeout},
	}
}

type flwEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type flwCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type flwCustomizations struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type flwPaymentRequest struct {
	TxRef          string            `json:"tx_ref"`
	Amount         float64           `json:"amount"`
	Currency       string            `json:"currency"`
	RedirectURL    string            `json:"redirect_url"`
	Customer       flwCustomer       `json:"customer"`
	Customizations flwCustomizations `json:"customizations"`
	Meta           map[string]string `json:"meta,omitempty"`
}

type flwTransaction struct {
	ID       int64   `json:"id"`
	TxRef    string  `json:"tx_ref"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// CreateCheckout opens a standard payment and returns its hosted link
func (c *FlutterwaveClient) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	body := flwPaymentRequest{
		TxRef:       req.TxRef,
		Amount:      req.Amount,
		Currency:    req.Currency,
		RedirectURL: c.redirectURL,
		Customer:    flwCustomer{Email: req.CustomerEmail, Name: req.CustomerName},
		Customizations: flwCustomizations{
			Title:       req.Title,
			Description: req.Description,
		},
		Meta: req.Meta,
	}

	var data struct {
		Link string `json:"link"`
	}
	if err := c.do(ctx, http.MethodPost, "/v3/payments", body, &data); err != nil {
		return "", err
	}
	if data.Link == "" {
		return "", fmt.Errorf("gateway returned no checkout link")
	}
	return data.Link, nil
}

// VerifyByReference fetches the transaction recorded for txRef
func (c *FlutterwaveClient) VerifyByReference(ctx context.Context, txRef string) (*Verification, error) {
	var tx flwTransaction
	path := "/v3/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(txRef)
	if err := c.do(ctx, http.MethodGet, path, nil, &tx); err != nil {
		var se *StatusError
		if errors.As(err, &se) && isNoTransaction(se) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, se.Message)
		}
		return nil, err
	}
	return &Verification{
		TransactionID: fmt.Sprintf("%d", tx.ID),
		TxRef:         tx.TxRef,
		Status:        strings.ToLower(tx.Status),
		Amount:        tx.Amount,
		Currency:      strings.ToUpper(tx.Currency),
	}, nil
}

func (c *FlutterwaveClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach payment gateway: %w", err)
	}
	defer resp.Body.Close()

	var envelope flwEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil {
		return fmt.Errorf("payment gateway returned status %d with unreadable body: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || envelope.Status != "success" {
		return &StatusError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode gateway data: %w", err)
	}
	return nil
}

// Flutterwave answers an unknown tx_ref with a 400 or 404 and this message
func isNoTransaction(se *StatusError) bool {
	if se.StatusCode != http.StatusBadRequest && se.StatusCode != http.StatusNotFound {
		return false
	}
	return strings.Contains(strings.ToLower(se.Message), "no transaction")
}

// ValidWebhookSignature compares the verif-hash header with the secret hash
// configured on the gateway dashboard
func ValidWebhookSignature(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
