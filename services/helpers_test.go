package services

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/evm"
	"github.com/2HgO/aura-go/evm/evmtest"
	"github.com/2HgO/aura-go/models"
)

var (
	usdcAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	daiAddress  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	holder      = "0x1111111111111111111111111111111111111111"
)

type staticBackends struct {
	backend evm.Backend
	err     error
}

func (s staticBackends) Backend(context.Context, int64) (evm.Backend, error) {
	return s.backend, s.err
}

func testRegistry() *evm.Registry {
	return evm.NewRegistry(&config.Config{})
}

// newChain returns a mainnet fake with USDC (6 decimals) and DAI (18 decimals) deployed.
func newChain() *evmtest.Backend {
	backend := evmtest.NewBackend(1)
	backend.AddToken(usdcAddress, 6, "USDC", "USD Coin")
	backend.AddToken(daiAddress, 18, "DAI", "Dai Stablecoin")
	return backend
}

func newTestKey(t *testing.T) (string, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return hex.EncodeToString(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey)
}

func units(v int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, event models.WebhookEvent, key string, data any) error {
	return m.Called(ctx, event, key, data).Error(0)
}

func (m *mockNotifier) Close() error {
	return nil
}

type mockAura struct {
	mock.Mock
}

func (m *mockAura) GetBalances(ctx context.Context, address string) (*models.AuraPortfolio, error) {
	args := m.Called(ctx, address)
	res, _ := args.Get(0).(*models.AuraPortfolio)
	return res, args.Error(1)
}

func (m *mockAura) GetStrategies(ctx context.Context, address string) (*models.AuraStrategies, error) {
	args := m.Called(ctx, address)
	res, _ := args.Get(0).(*models.AuraStrategies)
	return res, args.Error(1)
}

func (m *mockAura) Trade(ctx context.Context, req *models.AuraTradeRequest) (*models.AuraTradeResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.AuraTradeResult)
	return res, args.Error(1)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type scheduledTask struct {
	at       time.Time
	interval time.Duration
	fn       func(ctx context.Context) error
}

// fakeScheduler records tasks instead of running them.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks map[string]scheduledTask
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{tasks: map[string]scheduledTask{}}
}

func (f *fakeScheduler) DropTask(taskID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, taskID)
}

func (f *fakeScheduler) ScheduleAt(taskID string, at time.Time, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[taskID] = scheduledTask{at: at, fn: fn}
	return nil
}

func (f *fakeScheduler) ScheduleEvery(taskID string, interval time.Duration, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[taskID] = scheduledTask{interval: interval, fn: fn}
	return nil
}

func (f *fakeScheduler) Scheduled(taskID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tasks[taskID]
	return ok
}

func (f *fakeScheduler) Stop() {}

func (f *fakeScheduler) task(taskID string) (scheduledTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	return task, ok
}

func (f *fakeScheduler) taskIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.tasks))
	for id := range f.tasks {
		ids = append(ids, id)
	}
	return ids
}
