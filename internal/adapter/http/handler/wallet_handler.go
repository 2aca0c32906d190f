package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WalletHandler handles wallet and money-movement endpoints.
type WalletHandler struct {
	walletSvc   ports.WalletService
	transferSvc ports.TransferService
	fundingSvc  ports.FundingService
	gateway     ports.PaymentGateway
	mapper      dto.Mapper
	log         zerolog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(
	walletSvc ports.WalletService,
	transferSvc ports.TransferService,
	fundingSvc ports.FundingService,
	gateway ports.PaymentGateway,
	mapper dto.Mapper,
	log zerolog.Logger,
) *WalletHandler {
	return &WalletHandler{
		walletSvc:   walletSvc,
		transferSvc: transferSvc,
		fundingSvc:  fundingSvc,
		gateway:     gateway,
		mapper:      mapper,
		log:         log,
	}
}

// callerID returns the authenticated party or writes AUTH_001.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.PartyID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds and sanitizes a request body, writing VAL_001 on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// Open handles POST /api/v1/wallets.
func (h *WalletHandler) Open(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.OpenWalletRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	wallet, created, err := h.walletSvc.OpenWallet(c.Request.Context(), partyID, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !created {
		response.OK(c, h.mapper.Wallet(wallet))
		return
	}
	c.Set(middleware.CtxResourceID, wallet.ID.String())
	response.Created(c, h.mapper.Wallet(wallet))
}

// GetMine handles GET /api/v1/wallets/me.
func (h *WalletHandler) GetMine(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), partyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.mapper.Wallet(wallet))
}

// Transfer handles POST /api/v1/wallets/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, err := req.MinorUnits(h.mapper.Exponent)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.transferSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		SourcePartyID:      partyID,
		DestinationPartyID: uuid.MustParse(req.RecipientID),
		Amount:             amount,
		Description:        req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Debit.ID.String())
	response.Created(c, h.mapper.Transfer(result))
}

// Payment handles POST /api/v1/wallets/payment.
func (h *WalletHandler) Payment(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, err := req.MinorUnits(h.mapper.Exponent)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.transferSvc.Payment(c.Request.Context(), ports.PaymentRequest{
		PayerPartyID: partyID,
		MerchantID:   uuid.MustParse(req.MerchantID),
		Amount:       amount,
		Description:  req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Debit.ID.String())
	response.Created(c, h.mapper.Transfer(result))
}

// AddFunds handles POST /api/v1/wallets/add-funds: charge the payment method,
// then credit the captured amount under the gateway confirmation id.
func (h *WalletHandler) AddFunds(c *gin.Context) {
	partyID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.AddFundsRequest
	if !bindJSON(c, &req) {
		return
	}
	amount, err := req.MinorUnits(h.mapper.Exponent)
	if err != nil {
		response.Error(c, err)
		return
	}
	if amount <= 0 {
		// reject before charging anything
		response.Error(c, apperror.ErrInvalidAmount(nil))
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), partyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	conf, err := h.gateway.Charge(c.Request.Context(), ports.ChargeRequest{
		Amount:             amount,
		Currency:           wallet.Currency,
		PaymentMethodToken: req.PaymentMethod,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.fundingSvc.Fund(c.Request.Context(), ports.FundingRequest{
		WalletID:               wallet.ID,
		Amount:                 conf.Amount,
		ExternalConfirmationID: conf.ConfirmationID,
	})
	if err != nil {
		// The charge went through; the gateway callback can still apply it.
		h.log.Error().Err(err).
			Str("confirmation_id", conf.ConfirmationID).
			Str("wallet_id", wallet.ID.String()).
			Msg("charge captured but funding failed")
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
