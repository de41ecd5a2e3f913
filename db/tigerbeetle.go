package db

import (
	tdb "github.com/tigerbeetle/tigerbeetle-go"
	tdb_types "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
)

// GetTxDBConnection connects to the TigerBeetle cluster in TX_DB_URL. It returns a nil client when unset.
func GetTxDBConnection(cfg *config.Config, log *zap.Logger) (tdb.Client, error) {
	addr := cfg.TxDBAddresses()
	if len(addr) == 0 {
		log.Info("TX_DB_URL not set, payment ledger disabled")
		return nil, nil
	}
	client, err := tdb.NewClient(tdb_types.ToUint128(0), addr)
	if err != nil {
		log.Error("connecting to payment ledger", zap.Strings("addresses", addr), zap.Error(err))
		return nil, err
	}

	return client, nil
}
