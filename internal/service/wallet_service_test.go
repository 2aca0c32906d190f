package service

import (
	"context"
	"errors"
	"testing"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestWalletService_OpenWallet_Creates(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)
	svc := NewWalletService(store, "usd", zerolog.Nop())
	partyID := uuid.New()

	store.EXPECT().GetWalletByParty(gomock.Any(), partyID).Return(nil, domain.ErrWalletNotFound)
	store.EXPECT().CreateWallet(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, w *domain.Wallet) error {
			assert.Equal(t, partyID, w.PartyID)
			assert.Equal(t, "USD", w.Currency)
			assert.Zero(t, w.Balance)
			return nil
		},
	)

	w, created, err := svc.OpenWallet(context.Background(), partyID, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "USD", w.Currency)
}

func TestWalletService_OpenWallet_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)
	svc := NewWalletService(store, "USD", zerolog.Nop())
	existing := &domain.Wallet{ID: uuid.New(), PartyID: uuid.New(), Currency: "EUR", Balance: 40}

	store.EXPECT().GetWalletByParty(gomock.Any(), existing.PartyID).Return(existing, nil).Times(2)

	w, created, err := svc.OpenWallet(context.Background(), existing.PartyID, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, w.ID)

	w, _, err = svc.OpenWallet(context.Background(), existing.PartyID, "eur")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, w.ID)
}

func TestWalletService_OpenWallet_DifferentCurrencyRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)
	svc := NewWalletService(store, "USD", zerolog.Nop())
	existing := &domain.Wallet{ID: uuid.New(), PartyID: uuid.New(), Currency: "USD"}

	store.EXPECT().GetWalletByParty(gomock.Any(), existing.PartyID).Return(existing, nil)

	_, _, err := svc.OpenWallet(context.Background(), existing.PartyID, "EUR")
	requireAppErrorCode(t, err, "LED_005")
}

func TestWalletService_OpenWallet_LostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)
	svc := NewWalletService(store, "USD", zerolog.Nop())
	partyID := uuid.New()
	winner := &domain.Wallet{ID: uuid.New(), PartyID: partyID, Currency: "USD"}

	gomock.InOrder(
		store.EXPECT().GetWalletByParty(gomock.Any(), partyID).Return(nil, domain.ErrWalletNotFound),
		store.EXPECT().CreateWallet(gomock.Any(), gomock.Any()).Return(domain.ErrWalletExists),
		store.EXPECT().GetWalletByParty(gomock.Any(), partyID).Return(winner, nil),
	)

	w, created, err := svc.OpenWallet(context.Background(), partyID, "USD")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, w.ID)
}

func TestWalletService_OpenWallet_LookupFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)
	svc := NewWalletService(store, "USD", zerolog.Nop())

	store.EXPECT().GetWalletByParty(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, _, err := svc.OpenWallet(context.Background(), uuid.New(), "")
	requireAppErrorCode(t, err, "SYS_001")
}

func TestWalletService_GetWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)
	svc := NewWalletService(store, "USD", zerolog.Nop())
	w := &domain.Wallet{ID: uuid.New(), PartyID: uuid.New()}

	store.EXPECT().GetWalletByParty(gomock.Any(), w.PartyID).Return(w, nil)
	got, err := svc.GetWallet(context.Background(), w.PartyID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)

	missing := uuid.New()
	store.EXPECT().GetWalletByParty(gomock.Any(), missing).Return(nil, domain.ErrWalletNotFound)
	_, err = svc.GetWallet(context.Background(), missing)
	requireAppErrorCode(t, err, "LED_004")
}
