package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type transferTestDeps struct {
	svc   *TransferServiceImpl
	store *mocks.MockLedgerStore
	ctrl  *gomock.Controller
}

func setupTransferService(t *testing.T) *transferTestDeps {
	ctrl := gomock.NewController(t)
	d := &transferTestDeps{
		store: mocks.NewMockLedgerStore(ctrl),
		ctrl:  ctrl,
	}
	d.svc = NewTransferService(d.store, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Microsecond}, zerolog.Nop())
	return d
}

func testWallet(balance int64) *domain.Wallet {
	return &domain.Wallet{
		ID:       uuid.New(),
		PartyID:  uuid.New(),
		Currency: "USD",
		Balance:  balance,
		Version:  1,
	}
}

func committedPair(p ports.TransferPosting) *domain.EntryPair {
	debitID, creditID := uuid.New(), uuid.New()
	debitWallet, creditWallet := p.Debit, p.Credit
	debitWallet.Balance -= p.Amount
	creditWallet.Balance += p.Amount
	return &domain.EntryPair{
		Debit:        &domain.Transaction{ID: debitID, OwnerID: p.Debit.PartyID, Kind: p.Kind, Amount: -p.Amount, Description: p.DebitDescription, LinkedEntryID: &creditID},
		Credit:       &domain.Transaction{ID: creditID, OwnerID: p.Credit.PartyID, Kind: p.Kind, Amount: p.Amount, Description: p.CreditDescription, LinkedEntryID: &debitID},
		DebitWallet:  debitWallet,
		CreditWallet: creditWallet,
	}
}

func TestTransferService_Transfer_Success(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(500), testWallet(0)

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil)
	d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil)
	d.store.EXPECT().AtomicTransfer(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p ports.TransferPosting) (*domain.EntryPair, error) {
			assert.Equal(t, domain.TransactionKindTransfer, p.Kind)
			assert.Equal(t, int64(200), p.Amount)
			assert.Equal(t, src.Version, p.Debit.Version)
			assert.Equal(t, "Transfer to "+dst.PartyID.String(), p.DebitDescription)
			assert.Equal(t, "Transfer from "+src.PartyID.String(), p.CreditDescription)
			return committedPair(p), nil
		},
	)

	result, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID:      src.PartyID,
		DestinationPartyID: dst.PartyID,
		Amount:             200,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), result.SourceBalance)
	assert.Equal(t, int64(200), result.DestBalance)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, domain.StateCompleted, result.State)
	assert.Equal(t, int64(-200), result.Debit.Amount)
}

func TestTransferService_Transfer_CustomDescriptionOnBothSides(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(500), testWallet(0)

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil)
	d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil)
	d.store.EXPECT().AtomicTransfer(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p ports.TransferPosting) (*domain.EntryPair, error) {
			assert.Equal(t, "rent", p.DebitDescription)
			assert.Equal(t, "rent", p.CreditDescription)
			return committedPair(p), nil
		},
	)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 1, Description: "rent",
	})
	require.NoError(t, err)
}

func TestTransferService_Payment_UsesPaymentKind(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	payer, merchant := testWallet(1000), testWallet(0)

	d.store.EXPECT().GetWalletByParty(ctx, payer.PartyID).Return(payer, nil)
	d.store.EXPECT().GetWalletByParty(ctx, merchant.PartyID).Return(merchant, nil)
	d.store.EXPECT().AtomicTransfer(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, p ports.TransferPosting) (*domain.EntryPair, error) {
			assert.Equal(t, domain.TransactionKindPayment, p.Kind)
			assert.Equal(t, "Payment to "+merchant.PartyID.String(), p.DebitDescription)
			assert.Equal(t, "Payment from "+payer.PartyID.String(), p.CreditDescription)
			return committedPair(p), nil
		},
	)

	result, err := d.svc.Payment(ctx, ports.PaymentRequest{
		PayerPartyID: payer.PartyID, MerchantID: merchant.PartyID, Amount: 250,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(750), result.SourceBalance)
	assert.Equal(t, int64(250), result.DestBalance)
}

func TestTransferService_Transfer_InvalidAmount(t *testing.T) {
	d := setupTransferService(t)

	for _, amount := range []int64{0, -1} {
		_, err := d.svc.Transfer(context.Background(), ports.TransferRequest{
			SourcePartyID: uuid.New(), DestinationPartyID: uuid.New(), Amount: amount,
		})
		requireAppErrorCode(t, err, "LED_001")
	}
}

func TestTransferService_Transfer_SelfTransferRejected(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	w := testWallet(500)

	d.store.EXPECT().GetWalletByParty(ctx, w.PartyID).Return(w, nil).Times(2)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: w.PartyID, DestinationPartyID: w.PartyID, Amount: 100,
	})
	requireAppErrorCode(t, err, "LED_002")
	assert.ErrorIs(t, err, domain.ErrSelfReferential)
}

func TestTransferService_Transfer_InsufficientFunds(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(300), testWallet(200)

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil)
	d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 1000,
	})
	requireAppErrorCode(t, err, "LED_003")
}

func TestTransferService_Transfer_DestinationBalanceOverflow(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(100), testWallet(math.MaxInt64-50)

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil)
	d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 100,
	})
	requireAppErrorCode(t, err, "LED_009")
}

func TestTransferService_Transfer_CurrencyMismatch(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(300), testWallet(0)
	dst.Currency = "EUR"

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil)
	d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 1,
	})
	requireAppErrorCode(t, err, "LED_005")
}

func TestTransferService_Transfer_WalletNotFound(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src := testWallet(300)
	missing := uuid.New()

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil)
	d.store.EXPECT().GetWalletByParty(ctx, missing).Return(nil, domain.ErrWalletNotFound)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: missing, Amount: 1,
	})
	requireAppErrorCode(t, err, "LED_004")
}

func TestTransferService_Transfer_RetriesConflictThenSucceeds(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(500), testWallet(0)
	reread := *src
	reread.Version = 2

	gomock.InOrder(
		d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil),
		d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil),
		d.store.EXPECT().AtomicTransfer(ctx, gomock.Any()).Return(nil, domain.ErrVersionConflict),
		d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(&reread, nil),
		d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil),
		d.store.EXPECT().AtomicTransfer(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, p ports.TransferPosting) (*domain.EntryPair, error) {
				assert.Equal(t, int64(2), p.Debit.Version, "second attempt must use the re-read snapshot")
				return committedPair(p), nil
			},
		),
	)

	result, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
}

func TestTransferService_Transfer_BusyAfterExhaustion(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(500), testWallet(0)

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil).Times(3)
	d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil).Times(3)
	d.store.EXPECT().AtomicTransfer(ctx, gomock.Any()).
		Return(nil, domain.ErrVersionConflict).Times(3)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 100,
	})
	requireAppErrorCode(t, err, "LED_006")
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestTransferService_Transfer_CancelledDuringBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)
	svc := NewTransferService(store, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}, zerolog.Nop())
	src, dst := testWallet(500), testWallet(0)

	ctx, cancel := context.WithCancel(context.Background())
	store.EXPECT().GetWalletByParty(gomock.Any(), src.PartyID).Return(src, nil)
	store.EXPECT().GetWalletByParty(gomock.Any(), dst.PartyID).Return(dst, nil)
	store.EXPECT().AtomicTransfer(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, ports.TransferPosting) (*domain.EntryPair, error) {
			cancel()
			return nil, domain.ErrVersionConflict
		},
	)

	_, err := svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 100,
	})
	requireAppErrorCode(t, err, "LED_006")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransferService_Transfer_StoreFailureIsInternal(t *testing.T) {
	d := setupTransferService(t)
	ctx := context.Background()
	src, dst := testWallet(500), testWallet(0)

	d.store.EXPECT().GetWalletByParty(ctx, src.PartyID).Return(src, nil)
	d.store.EXPECT().GetWalletByParty(ctx, dst.PartyID).Return(dst, nil)
	d.store.EXPECT().AtomicTransfer(ctx, gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		SourcePartyID: src.PartyID, DestinationPartyID: dst.PartyID, Amount: 100,
	})
	requireAppErrorCode(t, err, "SYS_001")
}
