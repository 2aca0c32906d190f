package gateway

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

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type chargeBody struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
}

type chargeReply struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// HTTPGateway captures charges through a JSON API at POST {base_url}/charges.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  HTTPClient
	log     zerolog.Logger
}

var _ ports.PaymentGateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates a gateway client. A nil client gets an http.Client
// with the configured timeout.
func NewHTTPGateway(cfg config.GatewayConfig, client HTTPClient, log zerolog.Logger) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
		log:     log,
	}
}

// Charge posts the charge and maps any non-approved outcome to GW_001.
func (g *HTTPGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeConfirmation, error) {
	payload, err := json.Marshal(chargeBody{
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethodToken,
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encode charge: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build charge request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.log.Warn().Err(err).Msg("gateway: charge request failed")
		return nil, apperror.ErrGatewayDeclined(fmt.Errorf("charge request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.ErrGatewayDeclined(fmt.Errorf("read charge response: %w", err))
	}

	var reply chargeReply
	if len(body) > 0 {
		if err := json.Unmarshal(body, &reply); err != nil && resp.StatusCode < 300 {
			return nil, apperror.ErrGatewayDeclined(fmt.Errorf("decode charge response: %w", err))
		}
	}

	g.log.Debug().
		Int("status", resp.StatusCode).
		Str("charge_status", reply.Status).
		Dur("latency", time.Since(start)).
		Msg("gateway: charge response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.ErrGatewayDeclined(fmt.Errorf("gateway returned %d: %s", resp.StatusCode, reply.Message))
	}
	if reply.Status != StatusApproved && reply.Status != "succeeded" {
		return nil, apperror.ErrGatewayDeclined(fmt.Errorf("charge %s: %s", reply.Status, reply.Message))
	}
	if reply.ID == "" {
		return nil, apperror.ErrGatewayDeclined(errors.New("charge approved without confirmation id"))
	}

	amount := reply.Amount
	if amount == 0 {
		amount = req.Amount
	}
	currency := reply.Currency
	if currency == "" {
		currency = req.Currency
	}
	return &ports.ChargeConfirmation{
		ConfirmationID: reply.ID,
		Amount:         amount,
		Currency:       strings.ToUpper(currency),
		Status:         StatusApproved,
	}, nil
}
