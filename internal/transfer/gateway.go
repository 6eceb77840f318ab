// AngelaMos | 2026
// gateway.go

// Package transfer abstracts how settlement value physically reaches a
// holder. The engine only needs Send to either fully succeed or fully
// fail; a failure rolls the surrounding ledger transaction back.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
)

type ValueTransfer interface {
	Send(ctx context.Context, holderID string, amount decimal.Decimal) error
}

type gateway struct {
	client   *http.Client
	endpoint string
	token    string
	currency string
}

// NewGateway builds an HTTP client for the external settlement gateway.
func NewGateway(
	endpoint, token, currency string,
	timeout time.Duration,
) ValueTransfer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &gateway{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		token:    token,
		currency: currency,
	}
}

type logTransfer struct {
	logger *slog.Logger
}

// NewLogTransfer records transfers without moving value. Development
// only; production requires a gateway endpoint.
func NewLogTransfer(logger *slog.Logger) ValueTransfer {
	return &logTransfer{logger: logger}
}

func (t *logTransfer) Send(
	ctx context.Context,
	holderID string,
	amount decimal.Decimal,
) error {
	t.logger.Info("transfer (log only)",
		"holder_id", holderID,
		"amount", amount.String(),
	)
	return nil
}

type transferRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	HolderID       string          `json:"holder_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

func (g *gateway) Send(
	ctx context.Context,
	holderID string,
	amount decimal.Decimal,
) error {
	payload, err := json.Marshal(transferRequest{
		IdempotencyKey: uuid.New().String(),
		HolderID:       holderID,
		Amount:         amount,
		Currency:       g.currency,
	})
	if err != nil {
		return fmt.Errorf("marshal transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.endpoint+"/transfers",
		bytes.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("build transfer request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("settlement gateway: %v: %w", err, core.ErrTransferFailed)
	}
	defer resp.Body.Close() //nolint:errcheck // response body drained on close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf(
			"settlement gateway returned %d: %w",
			resp.StatusCode,
			core.ErrTransferFailed,
		)
	}

	return nil
}
