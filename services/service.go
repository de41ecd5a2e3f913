package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/metrics"
)

type service struct {
	metrics metrics.Recorder
	log     *zap.Logger
	now     func() time.Time
}

func newService(recorder metrics.Recorder, log *zap.Logger) service {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return service{metrics: recorder, log: log, now: time.Now}
}

// BackendProvider hands out a chain backend. *evm.Pool implements it.
type BackendProvider interface {
	Backend(ctx context.Context, chainID int64) (evm.Backend, error)
}

func outcome(err error) map[string]string {
	if err != nil {
		return map[string]string{"outcome": "error"}
	}
	return map[string]string{"outcome": "ok"}
}

// Ledgers maps ledger ids to payment currencies.
var Ledgers = map[uint32]string{
	1: "usdc",
	2: "usdt",
	3: "eth",
}

var LedgerIDs = map[string]uint32{
	"usdc": 1,
	"usdt": 2,
	"eth":  3,
}
