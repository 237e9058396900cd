package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rentledger/internal/infra/persistence/memory"
	"rentledger/pkg/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.July, 15, 10, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func sequentialIDs(prefix string) IDGenerator {
	var n int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&n, 1)) }
}

func newTestLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

// newTestService returns an in-memory service with a fixed clock and
// sequential ids. Later options override the defaults.
func newTestService(t *testing.T, opts ...Option) (*Service, *test.Hook) {
	t.Helper()
	entry, hook := newTestLogger()
	base := []Option{
		WithClock(fixedClock{testNow}),
		WithIDGenerator(sequentialIDs("id")),
		WithLogger(entry),
	}
	svc := NewInMemoryService(append(base, opts...)...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, hook
}

func hasLog(hook *test.Hook, level logrus.Level, substr string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func mustProperty(t *testing.T, svc *Service, name string, floors, rooms int) domain.Property {
	t.Helper()
	p, err := svc.AddProperty(context.Background(), domain.PropertyDraft{
		Name: name, Address: name + " street", FloorCount: floors, RoomCount: rooms,
	})
	require.NoError(t, err)
	return p
}

func mustTenant(t *testing.T, svc *Service, propertyID, name string, rent int64) domain.Tenant {
	t.Helper()
	tenant, err := svc.AddTenant(context.Background(), domain.TenantDraft{
		Name:           name,
		Rent:           dec(rent),
		LeaseStart:     domain.NewDate(2025, time.January, 1),
		LeaseEnd:       domain.NewDate(2025, time.December, 31),
		ContractStatus: domain.ContractActive,
		PropertyID:     propertyID,
		Floor:          1,
	})
	require.NoError(t, err)
	return tenant
}

func mustPayment(t *testing.T, svc *Service, tenantID string, amount int64, on string) domain.Payment {
	t.Helper()
	p, err := svc.AddPayment(context.Background(), domain.PaymentDraft{
		TenantID: tenantID,
		Amount:   dec(amount),
		Date:     domain.MustParseDate(on),
	})
	require.NoError(t, err)
	return p
}

// faultyBackend wraps the memory backend with injectable failures and
// counters.
type faultyBackend struct {
	*memory.Store

	mu        sync.Mutex
	ensureErr error
	loadErr   error
	saveErr   error
	saves     int
}

func newFaultyBackend() *faultyBackend { return &faultyBackend{Store: memory.NewStore()} }

func (b *faultyBackend) EnsureCollections(ctx context.Context, names []domain.Collection) error {
	if b.ensureErr != nil {
		return b.ensureErr
	}
	return b.Store.EnsureCollections(ctx, names)
}

func (b *faultyBackend) Load(ctx context.Context, name domain.Collection) ([]byte, bool, error) {
	b.mu.Lock()
	err := b.loadErr
	b.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return b.Store.Load(ctx, name)
}

func (b *faultyBackend) Save(ctx context.Context, name domain.Collection, payload []byte) error {
	b.mu.Lock()
	err := b.saveErr
	b.saves++
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Store.Save(ctx, name, payload)
}

func (b *faultyBackend) saveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *faultyBackend) failSaves(err error) {
	b.mu.Lock()
	b.saveErr = err
	b.mu.Unlock()
}

func serviceOver(t *testing.T, backend domain.CollectionBackend, opts ...Option) (*Service, *test.Hook) {
	t.Helper()
	entry, hook := newTestLogger()
	base := []Option{
		WithClock(fixedClock{testNow}),
		WithIDGenerator(sequentialIDs("id")),
		WithLogger(entry),
	}
	svc := NewService(func(context.Context) (domain.CollectionBackend, error) { return backend, nil }, append(base, opts...)...)
	return svc, hook
}

var errBoom = errors.New("boom")
