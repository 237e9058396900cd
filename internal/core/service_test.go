package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metricsCall struct {
	op      string
	success bool
}

type captureMetrics struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetrics) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

func TestRegisterUserRejectsCaseInsensitiveDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, hook := newTestService(t)

	alice, err := svc.RegisterUser(ctx, domain.UserDraft{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", alice.ID)

	_, err = svc.RegisterUser(ctx, domain.UserDraft{Username: "ALICE", Password: "other"})
	require.ErrorIs(t, err, domain.ErrDuplicateUsername)
	assert.True(t, hasLog(hook, logrus.WarnLevel, "operation rejected"))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestPaymentRejectedAfterTenantArchived(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)
	tenant := mustTenant(t, svc, p.ID, "Ada", 1000)
	mustPayment(t, svc, tenant.ID, 1000, "2025-07-01")

	found, err := svc.SetTenantArchived(ctx, tenant.ID, true)
	require.NoError(t, err)
	require.True(t, found)

	_, err = svc.AddPayment(ctx, domain.PaymentDraft{TenantID: tenant.ID, Amount: dec(10), Date: d("2025-07-02")})
	require.ErrorIs(t, err, domain.ErrTenantArchived)
	payments, err := svc.ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	status, err := svc.LatestPaymentStatus(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, status)
}

func TestArchivedPropertyBlocksTenantWrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)
	tenant := mustTenant(t, svc, p.ID, "Ada", 1000)

	found, err := svc.SetPropertyArchived(ctx, p.ID, true)
	require.NoError(t, err)
	require.True(t, found)

	_, err = svc.AddTenant(ctx, tenant.Draft())
	require.ErrorIs(t, err, domain.ErrPropertyArchived)
	_, err = svc.SetTenantArchived(ctx, tenant.ID, false)
	require.ErrorIs(t, err, domain.ErrPropertyArchived)
	_, err = svc.AddPayment(ctx, domain.PaymentDraft{TenantID: tenant.ID, Amount: dec(1), Date: d("2025-07-01")})
	require.ErrorIs(t, err, domain.ErrTenantArchived)

	tenants, _ := svc.ListTenants(ctx)
	require.Len(t, tenants, 1)
	assert.False(t, tenants[0].Archived, "the tenant's own flag is untouched")

	_, err = svc.SetPropertyArchived(ctx, p.ID, false)
	require.NoError(t, err)
	mustPayment(t, svc, tenant.ID, 1, "2025-07-01")
}

func TestAddTenantRejectsDanglingProperty(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddTenant(context.Background(), domain.TenantDraft{
		Name: "Ada", ContractStatus: domain.ContractActive, PropertyID: "nowhere", Floor: 1,
	})
	require.ErrorIs(t, err, domain.ErrDanglingReference)
}

func TestDeleteTenantCascadesPayments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)
	ada := mustTenant(t, svc, p.ID, "Ada", 1000)
	ben := mustTenant(t, svc, p.ID, "Ben", 800)
	mustPayment(t, svc, ada.ID, 500, "2025-06-01")
	mustPayment(t, svc, ben.ID, 800, "2025-07-01")
	mustPayment(t, svc, ada.ID, 500, "2025-07-01")

	removed, found, err := svc.DeleteTenant(ctx, ada.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, removed)

	payments, _ := svc.ListPayments(ctx)
	require.Len(t, payments, 1)
	assert.Equal(t, ben.ID, payments[0].TenantID)
	tenants, _ := svc.ListTenants(ctx)
	require.Len(t, tenants, 1)
}

func TestDeletePropertyArchivesItsTenants(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)
	ada := mustTenant(t, svc, p.ID, "Ada", 1000)
	mustPayment(t, svc, ada.ID, 1000, "2025-07-03")

	found, err := svc.DeleteProperty(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, found)

	tenants, err := svc.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1, "property deletes do not cascade")
	assert.False(t, tenants[0].Archived)

	rows, err := svc.TenantOverview(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, UnknownProperty, rows[0].PropertyName)
	assert.True(t, rows[0].Archived)
	assert.Equal(t, domain.StatusArchived, rows[0].LatestStatus)

	summary, err := svc.MonthlySummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.ActiveTenantsCount)
	assert.Zero(t, summary.PaidTenantsCount)
	assert.True(t, summary.TotalExpectedRent.IsZero())

	_, err = svc.AddPayment(ctx, domain.PaymentDraft{TenantID: ada.ID, Amount: dec(10), Date: d("2025-07-04")})
	require.ErrorIs(t, err, domain.ErrTenantArchived)
	payments, _ := svc.ListPayments(ctx)
	assert.Len(t, payments, 1)
}

func TestOrphanedTenantCanStillBeArchived(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)
	ada := mustTenant(t, svc, p.ID, "Ada", 1000)
	_, err := svc.DeleteProperty(ctx, p.ID)
	require.NoError(t, err)

	found, err := svc.SetTenantArchived(ctx, ada.ID, true)
	require.NoError(t, err)
	require.True(t, found)
	tenants, _ := svc.ListTenants(ctx)
	require.Len(t, tenants, 1)
	assert.True(t, tenants[0].Archived)

	draft := ada.Draft()
	draft.PropertyID = "somewhere-else"
	_, _, err = svc.UpdateTenant(ctx, ada.ID, draft)
	require.ErrorIs(t, err, domain.ErrDanglingReference)
}

func TestRentLifecycleAcrossPropertyArchive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 2, 4)
	t1 := mustTenant(t, svc, p.ID, "T1", 1000)
	pay := mustPayment(t, svc, t1.ID, 1000, "2025-07-05")
	require.Equal(t, domain.PaymentPaid, pay.Status)

	status, err := svc.LatestPaymentStatus(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DisplayStatus(domain.PaymentPaid), status)

	summary, err := svc.MonthlySummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ActiveTenantsCount)
	assert.Equal(t, 1, summary.PaidTenantsCount)
	assert.Equal(t, "1000", summary.TotalExpectedRent.String())
	assert.Equal(t, "1000", summary.TotalCollectedThisMonth.String())

	_, err = svc.SetPropertyArchived(ctx, p.ID, true)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	tenant, ok := snap.FindTenant(t1.ID)
	require.True(t, ok)
	assert.False(t, tenant.Archived)
	assert.True(t, snap.TenantEffectivelyArchived(tenant))

	status, err = svc.LatestPaymentStatus(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, status)

	_, err = svc.AddPayment(ctx, domain.PaymentDraft{TenantID: t1.ID, Amount: dec(1000), Date: d("2025-07-06")})
	require.ErrorIs(t, err, domain.ErrTenantArchived)
	payments, _ := svc.ListPayments(ctx)
	assert.Len(t, payments, 1)
}

func TestDefaultPaymentStatus(t *testing.T) {
	assert.Equal(t, domain.PaymentPending, DefaultPaymentStatus(dec(0), dec(100)))
	assert.Equal(t, domain.PaymentPartial, DefaultPaymentStatus(dec(50), dec(100)))
	assert.Equal(t, domain.PaymentPaid, DefaultPaymentStatus(dec(100), dec(100)))
	assert.Equal(t, domain.PaymentPaid, DefaultPaymentStatus(dec(150), dec(100)))
}

func TestAddPaymentDerivesStatusAndMonth(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)
	ada := mustTenant(t, svc, p.ID, "Ada", 1000)

	partial := mustPayment(t, svc, ada.ID, 400, "2025-07-02")
	assert.Equal(t, domain.PaymentPartial, partial.Status)
	assert.Equal(t, "July 2025", partial.Month)

	explicit, err := svc.AddPayment(ctx, domain.PaymentDraft{
		TenantID: ada.ID, Amount: dec(1), Date: d("2025-07-03"), Status: domain.PaymentOverdue, Month: "June 2025",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentOverdue, explicit.Status)
	assert.Equal(t, "June 2025", explicit.Month)

	updated, found, err := svc.UpdatePayment(ctx, partial.ID, domain.PaymentDraft{TenantID: ada.ID, Amount: dec(1000), Date: d("2025-07-02")})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.PaymentPaid, updated.Status)

	_, found, err = svc.UpdatePayment(ctx, "ghost", domain.PaymentDraft{TenantID: ada.ID, Amount: dec(1), Date: d("2025-07-02")})
	require.NoError(t, err)
	assert.False(t, found)

	found, err = svc.DeletePayment(ctx, explicit.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestValidationHappensBeforeStorage(t *testing.T) {
	ctx := context.Background()
	opened := false
	svc := NewService(func(context.Context) (domain.CollectionBackend, error) {
		opened = true
		return nil, errBoom
	})

	_, err := svc.AddProperty(ctx, domain.PropertyDraft{Address: "nowhere"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddTenant(ctx, domain.TenantDraft{Name: "Ada", ContractStatus: "bogus", PropertyID: "p"})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddPayment(ctx, domain.PaymentDraft{TenantID: "t", Amount: dec(-1), Date: d("2025-07-01")})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.AddTodo(ctx, domain.TodoDraft{Text: "   "})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.RegisterUser(ctx, domain.UserDraft{Username: "bob"})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, opened)

	_, err = svc.ListTenants(ctx)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.True(t, opened)
}

func TestServiceStorageFailureIsLoggedAsError(t *testing.T) {
	ctx := context.Background()
	backend := newFaultyBackend()
	svc, hook := serviceOver(t, backend)
	mustProperty(t, svc, "Maple", 1, 1)

	backend.failSaves(errBoom)
	_, err := svc.AddProperty(ctx, domain.PropertyDraft{Name: "Birch", Address: "1 Birch Way"})
	require.ErrorIs(t, err, domain.ErrStorageFailure)
	assert.True(t, hasLog(hook, logrus.ErrorLevel, "operation failed"))
}

func TestUpdateProperty(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)

	draft := p.Draft()
	draft.Name = "Maple Court"
	draft.FloorCount = 2
	draft.FloorRooms = []int{2, 3}
	draft.RoomCount = 0
	updated, found, err := svc.UpdateProperty(ctx, p.ID, draft)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 5, updated.RoomCount)

	_, found, err = svc.UpdateProperty(ctx, "ghost", draft)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = svc.SetPropertyArchived(ctx, "ghost", true)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateTenant(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	maple := mustProperty(t, svc, "Maple", 2, 4)
	birch := mustProperty(t, svc, "Birch", 1, 1)
	ada := mustTenant(t, svc, maple.ID, "Ada", 1000)

	draft := ada.Draft()
	draft.Floor = 2
	draft.Room = "Room 4"
	moved, found, err := svc.UpdateTenant(ctx, ada.ID, draft)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Room 4", moved.Room)

	draft.PropertyID = birch.ID
	_, _, err = svc.UpdateTenant(ctx, ada.ID, draft)
	require.ErrorIs(t, err, domain.ErrValidation, "floor 2 does not exist on Birch")

	_, found, err = svc.UpdateTenant(ctx, "ghost", ada.Draft())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTodoLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	todo, err := svc.AddTodo(ctx, domain.TodoDraft{Text: "  fix boiler "})
	require.NoError(t, err)
	assert.Equal(t, "fix boiler", todo.Text)
	assert.Equal(t, testNow, todo.CreatedAt)

	toggled, found, err := svc.ToggleTodo(ctx, todo.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, toggled.Completed)

	renamed, found, err := svc.RenameTodo(ctx, todo.ID, "replace boiler")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "replace boiler", renamed.Text)
	assert.True(t, renamed.Completed)

	_, _, err = svc.RenameTodo(ctx, todo.ID, " ")
	require.ErrorIs(t, err, domain.ErrValidation)

	_, found, err = svc.ToggleTodo(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, found)

	todos, _ := svc.ListTodos(ctx)
	require.Len(t, todos, 1)
	assert.Equal(t, "replace boiler", todos[0].Text)

	found, err = svc.DeleteTodo(ctx, todo.ID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPropertyOverviewThroughService(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	p := mustProperty(t, svc, "Maple", 1, 2)
	mustTenant(t, svc, p.ID, "Ada", 1000)
	ben := mustTenant(t, svc, p.ID, "Ben", 500)
	_, err := svc.SetTenantArchived(ctx, ben.ID, true)
	require.NoError(t, err)

	rows, err := svc.PropertyOverview(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].ActiveTenants)
	assert.Equal(t, 1, rows[0].ArchivedTenants)
	assert.Equal(t, "1000", rows[0].ExpectedRent.String())

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Tenants, 2)
}

func TestServiceRecordsMetricsAndSpans(t *testing.T) {
	ctx := context.Background()
	metrics := &captureMetrics{}
	tracer := NewJSONTracer(nil)
	svc, _ := newTestService(t, WithMetricsRecorder(metrics), WithTracer(tracer))

	mustProperty(t, svc, "Maple", 1, 1)
	_, err := svc.AddProperty(ctx, domain.PropertyDraft{})
	require.Error(t, err)

	assert.True(t, metrics.has("add_property", true))
	assert.True(t, metrics.has("add_property", false))

	entries := tracer.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "success", entries[0].Status)
	assert.Equal(t, "error", entries[1].Status)
	assert.NotEmpty(t, entries[1].Error)
}

func TestWithRulesEngineReplacesDefaults(t *testing.T) {
	ctx := context.Background()
	engine := domain.NewRulesEngine()
	svc, _ := newTestService(t, WithRulesEngine(engine))
	assert.Same(t, engine, svc.Rules())

	// Without the default rules a tenant may point anywhere.
	_, err := svc.AddTenant(ctx, domain.TenantDraft{Name: "Ada", ContractStatus: domain.ContractActive, PropertyID: "nowhere"})
	require.NoError(t, err)
}

func TestServiceNowUsesClock(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, testNow, svc.Now())
	assert.NotNil(t, svc.Store())
	assert.NotNil(t, svc.Users())
	assert.False(t, errors.Is(svc.Store().Ready(context.Background()), domain.ErrStorageUnavailable))
}
