package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful ledger writes.
// It maps HTTP methods and route templates to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		action, resourceType := mapPathToAction(route, c.Request.Method)
		if action == "" {
			return
		}

		var partyID *uuid.UUID
		if id, ok := PartyID(c); ok {
			partyID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(response.RequestIDKey),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			PartyID:      partyID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch path {
	case "/api/v1/wallets":
		return domain.AuditActionOpenWallet, "wallet"
	case "/api/v1/wallets/transfer":
		return domain.AuditActionTransfer, "transaction"
	case "/api/v1/wallets/payment":
		return domain.AuditActionPayment, "transaction"
	case "/api/v1/wallets/add-funds":
		return domain.AuditActionAddFunds, "transaction"
	case "/api/v1/funding/confirmations":
		return domain.AuditActionConfirmation, "transaction"
	}
	return "", ""
}
