package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tdb_types "github.com/tigerbeetle/tigerbeetle-go/pkg/types"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

type fakeLedgerClient struct {
	accounts        map[tdb_types.Uint128]tdb_types.Account
	transfers       []tdb_types.Transfer
	transferResults []tdb_types.TransferEventResult
}

func newFakeLedgerClient() *fakeLedgerClient {
	return &fakeLedgerClient{accounts: map[tdb_types.Uint128]tdb_types.Account{}}
}

func (f *fakeLedgerClient) CreateAccounts(accounts []tdb_types.Account) ([]tdb_types.AccountEventResult, error) {
	results := []tdb_types.AccountEventResult{}
	for i, account := range accounts {
		if _, ok := f.accounts[account.ID]; ok {
			results = append(results, tdb_types.AccountEventResult{Index: uint32(i), Result: tdb_types.AccountExists})
			continue
		}
		f.accounts[account.ID] = account
	}
	return results, nil
}

func (f *fakeLedgerClient) CreateTransfers(transfers []tdb_types.Transfer) ([]tdb_types.TransferEventResult, error) {
	f.transfers = append(f.transfers, transfers...)
	return f.transferResults, nil
}

func TestLedgerPostsPayment(t *testing.T) {
	client := newFakeLedgerClient()
	ledger := newLedgerService(client, nil)
	record := &models.PaymentRecord{PaymentID: "pay_1", Service: "chat", Amount: decimal.RequireFromString("0.05"), Currency: "USDC", UserAddress: holder}

	require.NoError(t, ledger.RecordPayment(context.Background(), record))
	require.NoError(t, ledger.RecordPayment(context.Background(), record), "existing accounts are reused")

	assert.Len(t, client.accounts, 2)
	require.Len(t, client.transfers, 2)
	transfer := client.transfers[0]
	assert.Equal(t, tdb_types.ToUint128(50000), transfer.Amount)
	assert.Equal(t, uint32(1), transfer.Ledger)
	assert.Equal(t, accountID("payer:"+holder), transfer.DebitAccountID)
	assert.Equal(t, accountID("revenue:chat"), transfer.CreditAccountID)
	assert.Equal(t, accountID("payment:pay_1"), transfer.ID)
}

func TestLedgerRejections(t *testing.T) {
	client := newFakeLedgerClient()
	ledger := newLedgerService(client, nil)
	ctx := context.Background()

	err := ledger.RecordPayment(ctx, &models.PaymentRecord{PaymentID: "pay_2", Currency: "DOGE", Amount: decimal.NewFromInt(1)})
	assert.Equal(t, errors.ErrValidation, errors.AsAppError(err).Type)

	client.transferResults = []tdb_types.TransferEventResult{{Index: 0, Result: tdb_types.TransferExceedsCredits}}
	err = ledger.RecordPayment(ctx, &models.PaymentRecord{PaymentID: "pay_3", Service: "chat", Currency: "usdc", Amount: decimal.NewFromInt(1), UserAddress: holder})
	assert.Equal(t, errors.ErrFailedDependency, errors.AsAppError(err).Type)
}

func TestAccountIDIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, accountID("payer:0xABC"), accountID("payer:0xabc"))
	assert.NotEqual(t, accountID("payer:0xabc"), accountID("revenue:0xabc"))
}
