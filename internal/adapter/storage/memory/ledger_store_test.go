package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openWallet(t *testing.T, s *LedgerStore, currency string) *domain.Wallet {
	t.Helper()
	w := domain.NewWallet(uuid.New(), currency)
	require.NoError(t, s.CreateWallet(context.Background(), w))
	return w
}

func fund(t *testing.T, s *LedgerStore, w *domain.Wallet, amount int64) {
	t.Helper()
	_, err := s.AtomicCredit(context.Background(), ports.CreditPosting{
		WalletID:          w.ID,
		Amount:            amount,
		ExternalReference: "seed-" + uuid.NewString(),
	})
	require.NoError(t, err)
}

func snapshot(t *testing.T, s *LedgerStore, id uuid.UUID) domain.Wallet {
	t.Helper()
	w, err := s.GetWallet(context.Background(), id)
	require.NoError(t, err)
	return *w
}

func TestLedgerStore_CreateWallet_OnePerParty(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	w := openWallet(t, s, "USD")

	dup := domain.NewWallet(w.PartyID, "USD")
	assert.ErrorIs(t, s.CreateWallet(ctx, dup), domain.ErrWalletExists)

	got, err := s.GetWalletByParty(ctx, w.PartyID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)

	_, err = s.GetWalletByParty(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	_, err = s.GetWallet(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestLedgerStore_AtomicTransfer_WritesLinkedPair(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	a, b := openWallet(t, s, "USD"), openWallet(t, s, "USD")
	fund(t, s, a, 500)

	pair, err := s.AtomicTransfer(ctx, ports.TransferPosting{
		Kind:              domain.TransactionKindTransfer,
		Debit:             snapshot(t, s, a.ID),
		Credit:            snapshot(t, s, b.ID),
		Amount:            200,
		DebitDescription:  "to b",
		CreditDescription: "from a",
	})
	require.NoError(t, err)

	assert.True(t, pair.IsBalanced())
	assert.Equal(t, int64(300), pair.DebitWallet.Balance)
	assert.Equal(t, int64(200), pair.CreditWallet.Balance)
	assert.Equal(t, a.PartyID, pair.Debit.OwnerID)
	assert.Equal(t, b.PartyID, *pair.Debit.CounterpartyID)
	assert.Equal(t, a.PartyID, *pair.Credit.CounterpartyID)
	assert.Equal(t, "to b", pair.Debit.Description)
	assert.Equal(t, "from a", pair.Credit.Description)
	assert.Equal(t, "USD", pair.Credit.Currency)
	assert.Equal(t, domain.TransactionStatusCompleted, pair.Debit.Status)

	stored, err := s.GetTransaction(ctx, pair.Credit.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.Debit.ID, *stored.LinkedEntryID)
}

func TestLedgerStore_AtomicTransfer_StaleSnapshotAppliesNothing(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	a, b := openWallet(t, s, "USD"), openWallet(t, s, "USD")
	fund(t, s, a, 500)

	stale := snapshot(t, s, a.ID)
	fund(t, s, a, 1) // bumps a's version

	_, err := s.AtomicTransfer(ctx, ports.TransferPosting{
		Kind:   domain.TransactionKindTransfer,
		Debit:  stale,
		Credit: snapshot(t, s, b.ID),
		Amount: 100,
	})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	assert.Equal(t, int64(501), snapshot(t, s, a.ID).Balance)
	assert.Equal(t, int64(0), snapshot(t, s, b.ID).Balance)

	_, total, err := s.ListTransactions(ctx, ports.TransactionListParams{OwnerID: b.PartyID})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLedgerStore_AtomicTransfer_NeverOverdraws(t *testing.T) {
	s := NewLedgerStore()
	a, b := openWallet(t, s, "USD"), openWallet(t, s, "USD")
	fund(t, s, a, 100)

	_, err := s.AtomicTransfer(context.Background(), ports.TransferPosting{
		Kind:   domain.TransactionKindPayment,
		Debit:  snapshot(t, s, a.ID),
		Credit: snapshot(t, s, b.ID),
		Amount: 101,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(100), snapshot(t, s, a.ID).Balance)
}

func TestLedgerStore_AtomicTransfer_CreditOverflowAppliesNothing(t *testing.T) {
	s := NewLedgerStore()
	a, b := openWallet(t, s, "USD"), openWallet(t, s, "USD")
	fund(t, s, a, 100)
	fund(t, s, b, math.MaxInt64-50)

	_, err := s.AtomicTransfer(context.Background(), ports.TransferPosting{
		Kind:   domain.TransactionKindTransfer,
		Debit:  snapshot(t, s, a.ID),
		Credit: snapshot(t, s, b.ID),
		Amount: 100,
	})
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)
	assert.Equal(t, int64(100), snapshot(t, s, a.ID).Balance)
	assert.Equal(t, int64(math.MaxInt64-50), snapshot(t, s, b.ID).Balance)
}

func TestLedgerStore_AtomicTransfer_RejectsSameWallet(t *testing.T) {
	s := NewLedgerStore()
	a := openWallet(t, s, "USD")
	fund(t, s, a, 100)

	snap := snapshot(t, s, a.ID)
	_, err := s.AtomicTransfer(context.Background(), ports.TransferPosting{
		Kind: domain.TransactionKindTransfer, Debit: snap, Credit: snap, Amount: 10,
	})
	assert.ErrorIs(t, err, domain.ErrSelfReferential)
}

func TestLedgerStore_AtomicCredit_DuplicateReference(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	a := openWallet(t, s, "USD")

	first, err := s.AtomicCredit(ctx, ports.CreditPosting{WalletID: a.ID, Amount: 500, ExternalReference: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), first.Wallet.Balance)
	assert.Equal(t, domain.TransactionKindDeposit, first.Transaction.Kind)
	assert.Equal(t, "pi_1", *first.Transaction.ExternalReference)

	again, err := s.AtomicCredit(ctx, ports.CreditPosting{WalletID: a.ID, Amount: 500, ExternalReference: "pi_1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)
	require.NotNil(t, again)
	assert.Equal(t, first.Transaction.ID, again.Transaction.ID)
	assert.Equal(t, int64(500), snapshot(t, s, a.ID).Balance)

	_, err = s.AtomicCredit(ctx, ports.CreditPosting{WalletID: uuid.New(), Amount: 1, ExternalReference: "pi_2"})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestLedgerStore_AtomicCredit_RejectsBalanceOverflow(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	a := openWallet(t, s, "USD")

	_, err := s.AtomicCredit(ctx, ports.CreditPosting{WalletID: a.ID, Amount: math.MaxInt64, ExternalReference: "pi_max"})
	require.NoError(t, err)

	res, err := s.AtomicCredit(ctx, ports.CreditPosting{WalletID: a.ID, Amount: 1, ExternalReference: "pi_one"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrBalanceOverflow)

	w := snapshot(t, s, a.ID)
	assert.Equal(t, int64(math.MaxInt64), w.Balance)
	assert.Equal(t, int64(2), w.Version)

	// The rejected reference was not consumed.
	_, err = s.AtomicCredit(ctx, ports.CreditPosting{WalletID: openWallet(t, s, "USD").ID, Amount: 1, ExternalReference: "pi_one"})
	assert.NoError(t, err)
}

func TestLedgerStore_AtomicCredit_ConcurrentDuplicatesApplyOnce(t *testing.T) {
	s := NewLedgerStore()
	a := openWallet(t, s, "USD")

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AtomicCredit(context.Background(), ports.CreditPosting{WalletID: a.ID, Amount: 250, ExternalReference: "pi_same"})
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(250), snapshot(t, s, a.ID).Balance)
}

func TestLedgerStore_ListTransactions(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	a, b := openWallet(t, s, "USD"), openWallet(t, s, "USD")
	fund(t, s, a, 1000)

	for i := 0; i < 3; i++ {
		_, err := s.AtomicTransfer(ctx, ports.TransferPosting{
			Kind:             domain.TransactionKindTransfer,
			Debit:            snapshot(t, s, a.ID),
			Credit:           snapshot(t, s, b.ID),
			Amount:           int64(10 * (i + 1)),
			DebitDescription: fmt.Sprintf("t%d", i),
		})
		require.NoError(t, err)
	}

	all, total, err := s.ListTransactions(ctx, ports.TransactionListParams{OwnerID: a.PartyID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 2)
	assert.Equal(t, "t2", all[0].Description, "newest first")
	assert.Equal(t, "t1", all[1].Description)

	page2, _, err := s.ListTransactions(ctx, ports.TransactionListParams{OwnerID: a.PartyID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, domain.TransactionKindDeposit, page2[1].Kind)

	deposit := domain.TransactionKindDeposit
	deposits, total, err := s.ListTransactions(ctx, ports.TransactionListParams{OwnerID: a.PartyID, Kind: &deposit})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, deposits, 1)

	empty, _, err := s.ListTransactions(ctx, ports.TransactionListParams{OwnerID: a.PartyID, Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.GetTransaction(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestLedgerStore_GetSummary(t *testing.T) {
	s := NewLedgerStore()
	ctx := context.Background()
	a, b := openWallet(t, s, "USD"), openWallet(t, s, "USD")
	fund(t, s, a, 1000)

	for i := 0; i < 6; i++ {
		_, err := s.AtomicTransfer(ctx, ports.TransferPosting{
			Kind:   domain.TransactionKindPayment,
			Debit:  snapshot(t, s, a.ID),
			Credit: snapshot(t, s, b.ID),
			Amount: 50,
		})
		require.NoError(t, err)
	}

	summary, err := s.GetSummary(ctx, a.PartyID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.TotalCount)
	assert.Equal(t, int64(300), summary.TotalDebited)
	assert.Equal(t, int64(1000), summary.TotalCredited)
	assert.Len(t, summary.Recent, 5)

	empty, err := s.GetSummary(ctx, uuid.New(), 5)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalCount)
	assert.NotNil(t, empty.Recent)
}
