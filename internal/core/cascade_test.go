package core

import (
	"context"
	"errors"
	"testing"

	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(engine *domain.RulesEngine) (*Coordinator, *Repository[domain.Tenant], *Repository[domain.Payment]) {
	store := NewCollectionStoreWithBackend(newFaultyBackend(), nil)
	tenants := NewRepository[domain.Tenant](store, domain.CollectionTenants, domain.EntityTenant, nil)
	payments := NewRepository[domain.Payment](store, domain.CollectionPayments, domain.EntityPayment, nil)
	return NewCoordinator(engine, tenants, payments, nil), tenants, payments
}

func tenantChange(t domain.Tenant) domain.Change {
	return domain.Change{Entity: domain.EntityTenant, Action: domain.ActionCreate, After: t}
}

func paymentChange(p domain.Payment) domain.Change {
	return domain.Change{Entity: domain.EntityPayment, Action: domain.ActionCreate, After: p}
}

func TestDefaultRulesEngineRegistersRules(t *testing.T) {
	rules := NewDefaultRulesEngine().Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, RuleTenantProperty, rules[0].Name())
	assert.Equal(t, RulePaymentTenant, rules[1].Name())
}

func TestTenantPropertyRule(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCoordinator(nil)
	view := Snapshot{Properties: []domain.Property{
		{ID: "open", Name: "Open", FloorCount: 2, RoomCount: 3},
		{ID: "closed", Name: "Closed", FloorCount: 1, RoomCount: 1, Archived: true},
	}}

	cases := []struct {
		name   string
		tenant domain.Tenant
		want   error
	}{
		{"placed", domain.Tenant{ID: "t", PropertyID: "open", Floor: 2, Room: "Room 3"}, nil},
		{"all rooms", domain.Tenant{ID: "t", PropertyID: "open", Floor: 1, Room: domain.AllRooms}, nil},
		{"archived property", domain.Tenant{ID: "t", PropertyID: "closed", Floor: 1, Room: domain.AllRooms}, domain.ErrPropertyArchived},
		{"dangling property", domain.Tenant{ID: "t", PropertyID: "gone", Floor: 1, Room: domain.AllRooms}, domain.ErrDanglingReference},
		{"floor out of range", domain.Tenant{ID: "t", PropertyID: "open", Floor: 3, Room: domain.AllRooms}, domain.ErrValidation},
		{"unknown room", domain.Tenant{ID: "t", PropertyID: "open", Floor: 1, Room: "Room 9"}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.Check(ctx, view, tenantChange(tc.tenant))
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
			var rv domain.RuleViolationError
			require.True(t, errors.As(err, &rv))
			assert.Equal(t, RuleTenantProperty, rv.Result.Violations[0].Rule)
		})
	}
}

func TestPaymentTenantRule(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCoordinator(nil)
	view := Snapshot{
		Properties: []domain.Property{{ID: "open"}, {ID: "closed", Archived: true}},
		Tenants: []domain.Tenant{
			{ID: "active", PropertyID: "open"},
			{ID: "archived", PropertyID: "open", Archived: true},
			{ID: "under-closed", PropertyID: "closed"},
			{ID: "orphan", PropertyID: "gone"},
		},
	}
	assert.NoError(t, c.Check(ctx, view, paymentChange(domain.Payment{ID: "p", TenantID: "active"})))
	for _, tenant := range []string{"archived", "under-closed", "missing", "orphan"} {
		err := c.Check(ctx, view, paymentChange(domain.Payment{ID: "p", TenantID: tenant}))
		assert.ErrorIs(t, err, domain.ErrTenantArchived, tenant)
	}
}

func TestTenantPropertyRuleVanishedProperty(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCoordinator(nil)
	view := Snapshot{Properties: []domain.Property{{ID: "open", Name: "Open", FloorCount: 1, RoomCount: 1}}}
	orphan := domain.Tenant{ID: "t", PropertyID: "gone", Floor: 1, Room: domain.AllRooms}

	archived := orphan
	archived.Archived = true
	keep := domain.Change{Entity: domain.EntityTenant, Action: domain.ActionUpdate, Before: orphan, After: archived}
	assert.NoError(t, c.Check(ctx, view, keep), "archiving an orphaned tenant")

	other := orphan
	other.PropertyID = "also-gone"
	move := domain.Change{Entity: domain.EntityTenant, Action: domain.ActionUpdate, Before: orphan, After: other}
	require.ErrorIs(t, c.Check(ctx, view, move), domain.ErrDanglingReference)

	rehomed := orphan
	rehomed.PropertyID = "open"
	assert.NoError(t, c.Check(ctx, view, domain.Change{Entity: domain.EntityTenant, Action: domain.ActionUpdate, Before: orphan, After: rehomed}))
}

func TestRulesIgnoreDeletes(t *testing.T) {
	c, _, _ := newTestCoordinator(nil)
	change := domain.Change{Entity: domain.EntityPayment, Action: domain.ActionDelete, Before: domain.Payment{TenantID: "missing"}}
	assert.NoError(t, c.Check(context.Background(), Snapshot{}, change))
}

type warnRule struct{}

func (warnRule) Name() string { return "heads_up" }

func (warnRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "heads_up", Severity: domain.SeverityWarn, Message: "lease ends soon"}}}, nil
}

type brokenRule struct{}

func (brokenRule) Name() string { return "broken" }

func (brokenRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{}, errBoom
}

func TestCoordinatorLogsWarningsAndSurfacesRuleErrors(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(warnRule{})
	entry, hook := newTestLogger()
	store := NewCollectionStoreWithBackend(newFaultyBackend(), nil)
	c := NewCoordinator(engine, NewRepository[domain.Tenant](store, domain.CollectionTenants, domain.EntityTenant, nil),
		NewRepository[domain.Payment](store, domain.CollectionPayments, domain.EntityPayment, nil), entry)

	require.NoError(t, c.Check(context.Background(), Snapshot{}))
	assert.True(t, hasLog(hook, logrus.WarnLevel, "lease ends soon"))

	c.Engine().Register(brokenRule{})
	err := c.Check(context.Background(), Snapshot{})
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "evaluate rules")
}

func TestCoordinatorDeleteTenantCascades(t *testing.T) {
	ctx := context.Background()
	c, tenants, payments := newTestCoordinator(nil)
	require.NoError(t, tenants.Add(ctx, domain.Tenant{ID: "t1"}))
	require.NoError(t, tenants.Add(ctx, domain.Tenant{ID: "t2"}))
	for _, p := range []domain.Payment{{ID: "a", TenantID: "t1"}, {ID: "b", TenantID: "t2"}, {ID: "c", TenantID: "t1"}} {
		require.NoError(t, payments.Add(ctx, p))
	}

	removed, found, err := c.DeleteTenant(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, removed)

	left, _ := payments.List(ctx)
	require.Len(t, left, 1)
	assert.Equal(t, "t2", left[0].TenantID)

	removed, found, err = c.DeleteTenant(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, removed)
}
