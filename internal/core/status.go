package core

import (
	"sort"
	"time"

	"rentledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// Snapshot holds full copies of the collections that derived status is
// computed from. It is loaded fresh for every read and never cached.
type Snapshot struct {
	Properties []domain.Property
	Tenants    []domain.Tenant
	Payments   []domain.Payment
	Todos      []domain.Todo
}

var _ domain.RuleView = Snapshot{}

// ListProperties implements domain.RuleView.
func (s Snapshot) ListProperties() []domain.Property { return s.Properties }

// ListTenants implements domain.RuleView.
func (s Snapshot) ListTenants() []domain.Tenant { return s.Tenants }

// ListPayments implements domain.RuleView.
func (s Snapshot) ListPayments() []domain.Payment { return s.Payments }

// FindProperty resolves a property reference.
func (s Snapshot) FindProperty(id string) (domain.Property, bool) {
	for _, p := range s.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Property{}, false
}

// FindTenant resolves a tenant reference.
func (s Snapshot) FindTenant(id string) (domain.Tenant, bool) {
	for _, t := range s.Tenants {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Tenant{}, false
}

// PropertyArchived reports whether the property exists and is archived. A
// missing property is not archived.
func (s Snapshot) PropertyArchived(id string) bool {
	p, ok := s.FindProperty(id)
	return ok && p.Archived
}

// TenantEffectivelyArchived folds the property's archived flag into the
// tenant's own. A tenant whose property no longer resolves counts as archived.
func (s Snapshot) TenantEffectivelyArchived(t domain.Tenant) bool {
	if t.Archived {
		return true
	}
	p, ok := s.FindProperty(t.PropertyID)
	return !ok || p.Archived
}

// TenantArchivedByID resolves id first. A tenant that cannot be resolved
// counts as archived.
func (s Snapshot) TenantArchivedByID(id string) bool {
	t, ok := s.FindTenant(id)
	if !ok {
		return true
	}
	return s.TenantEffectivelyArchived(t)
}

// PaymentEffectivelyArchived folds the tenant's effective state into the
// payment's own flag.
func (s Snapshot) PaymentEffectivelyArchived(p domain.Payment) bool {
	return p.Archived || s.TenantArchivedByID(p.TenantID)
}

// PaymentsFor returns the tenant's payments, newest first. Payments sharing
// a date keep their collection order.
func (s Snapshot) PaymentsFor(tenantID string) []domain.Payment {
	var out []domain.Payment
	for _, p := range s.Payments {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// LatestPaymentStatus returns the status of the tenant's newest payment.
// Archival takes precedence over payment history.
func (s Snapshot) LatestPaymentStatus(tenantID string) domain.DisplayStatus {
	if s.TenantArchivedByID(tenantID) {
		return domain.StatusArchived
	}
	payments := s.PaymentsFor(tenantID)
	if len(payments) == 0 {
		return domain.StatusNoPayments
	}
	return domain.DisplayStatus(payments[0].Status)
}

// MonthlySummary aggregates rent collection for one calendar month.
type MonthlySummary struct {
	Month                   domain.DateRange
	ActiveTenantsCount      int
	PaidTenantsCount        int
	TotalExpectedRent       decimal.Decimal
	TotalCollectedThisMonth decimal.Decimal
}

// MonthlyRentSummary computes the summary for the calendar month holding
// now. Active tenants are those not effectively archived with positive
// rent. Collected money counts every payment dated inside the month. A
// tenant is paid once their payments in the month add up to their rent.
func (s Snapshot) MonthlyRentSummary(now time.Time) MonthlySummary {
	window := domain.MonthRange(now)
	paidIn := make(map[string]decimal.Decimal)
	summary := MonthlySummary{Month: window, TotalExpectedRent: decimal.Zero, TotalCollectedThisMonth: decimal.Zero}
	for _, p := range s.Payments {
		if !window.Contains(p.Date) {
			continue
		}
		summary.TotalCollectedThisMonth = summary.TotalCollectedThisMonth.Add(p.Amount)
		paidIn[p.TenantID] = paidIn[p.TenantID].Add(p.Amount)
	}
	for _, t := range s.Tenants {
		if s.TenantEffectivelyArchived(t) || !t.Rent.IsPositive() {
			continue
		}
		summary.ActiveTenantsCount++
		summary.TotalExpectedRent = summary.TotalExpectedRent.Add(t.Rent)
		if paidIn[t.ID].GreaterThanOrEqual(t.Rent) {
			summary.PaidTenantsCount++
		}
	}
	return summary
}

// UnknownProperty is shown for tenants whose property does not resolve.
const UnknownProperty = "unknown property"

// TenantRow is one line of the tenant overview.
type TenantRow struct {
	Tenant            domain.Tenant
	PropertyName      string
	Archived          bool
	LatestStatus      domain.DisplayStatus
	PaidThisMonth     decimal.Decimal
	PaidInFullInMonth bool
}

// TenantOverview derives one row per tenant in collection order.
func (s Snapshot) TenantOverview(now time.Time) []TenantRow {
	window := domain.MonthRange(now)
	rows := make([]TenantRow, 0, len(s.Tenants))
	for _, t := range s.Tenants {
		name := UnknownProperty
		if p, ok := s.FindProperty(t.PropertyID); ok {
			name = p.Name
		}
		paid := decimal.Zero
		for _, p := range s.Payments {
			if p.TenantID == t.ID && window.Contains(p.Date) {
				paid = paid.Add(p.Amount)
			}
		}
		rows = append(rows, TenantRow{
			Tenant:            t,
			PropertyName:      name,
			Archived:          s.TenantEffectivelyArchived(t),
			LatestStatus:      s.LatestPaymentStatus(t.ID),
			PaidThisMonth:     paid,
			PaidInFullInMonth: t.Rent.IsPositive() && paid.GreaterThanOrEqual(t.Rent),
		})
	}
	return rows
}

// PropertyRow is one line of the property overview.
type PropertyRow struct {
	Property        domain.Property
	ActiveTenants   int
	ArchivedTenants int
	ExpectedRent    decimal.Decimal
}

// PropertyOverview derives one row per property in collection order.
func (s Snapshot) PropertyOverview() []PropertyRow {
	rows := make([]PropertyRow, 0, len(s.Properties))
	for _, p := range s.Properties {
		row := PropertyRow{Property: p, ExpectedRent: decimal.Zero}
		for _, t := range s.Tenants {
			if t.PropertyID != p.ID {
				continue
			}
			if s.TenantEffectivelyArchived(t) {
				row.ArchivedTenants++
				continue
			}
			row.ActiveTenants++
			row.ExpectedRent = row.ExpectedRent.Add(t.Rent)
		}
		rows = append(rows, row)
	}
	return rows
}

// PendingTodos returns the incomplete todos, oldest first.
func (s Snapshot) PendingTodos() []domain.Todo {
	var out []domain.Todo
	for _, t := range s.Todos {
		if !t.Completed {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
