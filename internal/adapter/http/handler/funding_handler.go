package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FundingHandler receives settled-charge callbacks from the payment gateway.
type FundingHandler struct {
	fundingSvc ports.FundingService
	mapper     dto.Mapper
}

// NewFundingHandler creates a new FundingHandler.
func NewFundingHandler(fundingSvc ports.FundingService, mapper dto.Mapper) *FundingHandler {
	return &FundingHandler{fundingSvc: fundingSvc, mapper: mapper}
}

// Confirm handles POST /api/v1/funding/confirmations. Replays of the same
// confirmation id answer 200 with duplicate=true.
func (h *FundingHandler) Confirm(c *gin.Context) {
	var req dto.FundingConfirmationRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, err := req.MinorUnits(h.mapper.Exponent)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.fundingSvc.Fund(c.Request.Context(), ports.FundingRequest{
		WalletID:               uuid.MustParse(req.WalletID),
		Amount:                 amount,
		ExternalConfirmationID: req.ConfirmationID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Transaction.ID.String())
	if result.Duplicate {
		response.OK(c, h.mapper.Funding(result))
		return
	}
	response.Created(c, h.mapper.Funding(result))
}
