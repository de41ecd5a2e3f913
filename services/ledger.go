package services

import (
	"context"
	"crypto/sha256"
	"strings"

	"github.com/shopspring/decimal"
	tdb "github.com/tigerbeetle/tigerbeetle-go"
	tdb_types "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

const (
	payerAccountCode    uint16 = 1
	revenueAccountCode  uint16 = 2
	paymentTransferCode uint16 = 1
)

// ledgerUnit is the fixed-point scale payments are posted at.
var ledgerUnit = decimal.New(1, 6)

type LedgerService interface {
	RecordPayment(ctx context.Context, record *models.PaymentRecord) error
}

type ledgerClient interface {
	CreateAccounts(accounts []tdb_types.Account) ([]tdb_types.AccountEventResult, error)
	CreateTransfers(transfers []tdb_types.Transfer) ([]tdb_types.TransferEventResult, error)
}

// NewLedgerService posts payments to TigerBeetle, or does nothing when no cluster is configured.
func NewLedgerService(txDatabase tdb.Client, log *zap.Logger) LedgerService {
	if txDatabase == nil {
		return noopLedger{}
	}
	return newLedgerService(txDatabase, log)
}

func newLedgerService(client ledgerClient, log *zap.Logger) *ledgerService {
	return &ledgerService{service: newService(nil, log), transactionDB: client}
}

type ledgerService struct {
	service
	transactionDB ledgerClient
}

// accountID derives a stable 128-bit id from a name so the same payer or service always maps to one account.
func accountID(name string) tdb_types.Uint128 {
	sum := sha256.Sum256([]byte(strings.ToLower(name)))
	var id [16]byte
	copy(id[:], sum[:16])
	return tdb_types.BytesToUint128(id)
}

func (l *ledgerService) RecordPayment(_ context.Context, record *models.PaymentRecord) error {
	ledger, ok := LedgerIDs[strings.ToLower(record.Currency)]
	if !ok {
		return errors.NewValidationError("unsupported payment currency " + record.Currency)
	}

	payer := accountID("payer:" + record.UserAddress)
	revenue := accountID("revenue:" + record.Service)

	res, err := l.transactionDB.CreateAccounts([]tdb_types.Account{
		{ID: payer, Ledger: ledger, Code: payerAccountCode},
		{ID: revenue, Ledger: ledger, Code: revenueAccountCode, Flags: tdb_types.AccountFlags{History: true}.ToUint16()},
	})
	if err != nil {
		return errors.HandleTxDBError(err)
	}
	for _, r := range res {
		switch r.Result {
		case tdb_types.AccountExists:
		default:
			return errors.NewFailedDependencyError(r.Result.String())
		}
	}

	amount := record.Amount.Mul(ledgerUnit).Truncate(0)
	transfers, err := l.transactionDB.CreateTransfers([]tdb_types.Transfer{
		{
			ID:              accountID("payment:" + record.PaymentID),
			DebitAccountID:  payer,
			CreditAccountID: revenue,
			Amount:          tdb_types.ToUint128(uint64(amount.IntPart())),
			Ledger:          ledger,
			Code:            paymentTransferCode,
		},
	})
	if err != nil {
		return errors.HandleTxDBError(err)
	}
	for _, r := range transfers {
		if r.Result != tdb_types.TransferExists {
			return errors.NewFailedDependencyError(r.Result.String())
		}
	}

	l.log.Info("payment posted to ledger", zap.String("payment_id", record.PaymentID), zap.String("amount", record.Amount.String()))
	return nil
}

type noopLedger struct{}

func (noopLedger) RecordPayment(context.Context, *models.PaymentRecord) error { return nil }
