package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler serves the caller's transaction history.
type TransactionHandler struct {
	reportingSvc ports.ReportingService
	mapper       dto.Mapper
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(reportingSvc ports.ReportingService, mapper dto.Mapper) *TransactionHandler {
	return &TransactionHandler{reportingSvc: reportingSvc, mapper: mapper}
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	var q dto.ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	params := ports.TransactionListParams{
		OwnerID:  partyID,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.Kind != "" {
		kind := domain.TransactionKind(q.Kind)
		params.Kind = &kind
	}
	params.Normalize()

	txns, total, err := h.reportingSvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paged(c, h.mapper.Transactions(txns), params.Page, params.PageSize, total)
}

// Summary handles GET /api/v1/transactions/summary.
func (h *TransactionHandler) Summary(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	summary, err := h.reportingSvc.GetSummary(c.Request.Context(), partyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.mapper.Summary(summary))
}

// Get handles GET /api/v1/transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("transaction id must be a UUID"))
		return
	}

	tx, err := h.reportingSvc.GetTransaction(c.Request.Context(), partyID, txID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.mapper.Transaction(tx))
}
