package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited ledger write.
type AuditAction string

const (
	AuditActionOpenWallet   AuditAction = "OPEN_WALLET"
	AuditActionTransfer     AuditAction = "TRANSFER"
	AuditActionPayment      AuditAction = "PAYMENT"
	AuditActionAddFunds     AuditAction = "ADD_FUNDS"
	AuditActionConfirmation AuditAction = "FUNDING_CONFIRMATION"
)

// AuditLog records a single audited write.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	PartyID      *uuid.UUID  `json:"party_id,omitempty"` // nil for gateway callbacks
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
