// Package gateway holds PaymentGateway implementations used by the add-funds
// endpoint. The ledger core never calls a gateway directly.
package gateway

import (
	"context"

	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
)

const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// StaticGateway approves every charge with a synthetic confirmation id.
type StaticGateway struct{}

var _ ports.PaymentGateway = StaticGateway{}

// Charge approves the request.
func (StaticGateway) Charge(_ context.Context, req ports.ChargeRequest) (*ports.ChargeConfirmation, error) {
	return &ports.ChargeConfirmation{
		ConfirmationID: "ch_" + uuid.NewString(),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         StatusApproved,
	}, nil
}
