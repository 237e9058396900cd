package core

import (
	"context"
	"time"

	"rentledger/pkg/domain"

	"github.com/shopspring/decimal"
)

// SeedReport counts the records Seed inserted per collection.
type SeedReport struct {
	Users      int
	Properties int
	Tenants    int
	Payments   int
	Todos      int
}

// Total returns the number of inserted records.
func (r SeedReport) Total() int {
	return r.Users + r.Properties + r.Tenants + r.Payments + r.Todos
}

// Demo account created by Seed.
const (
	DemoUsername = "demo"
	DemoPassword = "demo"
)

// seedCollection writes records only when the collection holds no records.
func seedCollection[T domain.Record](ctx context.Context, repo *Repository[T], records []T) (int, error) {
	added := 0
	err := repo.Mutate(ctx, func(existing []T) ([]T, error) {
		if len(existing) > 0 {
			return nil, errUnchanged
		}
		added = len(records)
		return records, nil
	})
	return added, err
}

// Seed fills empty collections with demo data: properties, their tenants,
// payments dated in the current month, todos and a demo user. Tenants are
// only seeded together with their properties, and payments with their
// tenants, so seeded references always resolve.
func (s *Service) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	err := s.run(ctx, "seed", func(ctx context.Context) error {
		now := s.clock.Now()
		month := domain.MonthRange(now)

		var err error
		demo := domain.User{ID: s.ids(), Username: DemoUsername, Name: "Demo Landlord", Password: DemoPassword}
		if report.Users, err = seedCollection(ctx, s.users.Repository, []domain.User{demo}); err != nil {
			return err
		}

		maple := domain.Property{ID: s.ids(), Name: "Maple Court", Address: "12 Maple Street", FloorCount: 2, RoomCount: 4}
		harbor := domain.Property{ID: s.ids(), Name: "Harbor View", Address: "3 Quay Road", FloorCount: 1, RoomCount: 2}
		if report.Properties, err = seedCollection(ctx, s.properties, []domain.Property{maple, harbor}); err != nil {
			return err
		}

		leaseStart := domain.NewDate(month.From.Year()-1, month.From.Month(), 1)
		leaseEnd := domain.NewDate(month.From.Year()+1, month.From.Month(), 0)
		tenants := []domain.Tenant{
			{ID: s.ids(), Name: "Ada Brooks", Rent: decimal.NewFromInt(1000), LeaseStart: leaseStart, LeaseEnd: leaseEnd, ContractStatus: domain.ContractActive, PropertyID: maple.ID, Floor: 1, Room: "Room 1"},
			{ID: s.ids(), Name: "Ben Carter", Rent: decimal.NewFromInt(850), LeaseStart: leaseStart, LeaseEnd: leaseEnd, ContractStatus: domain.ContractRenewed, PropertyID: maple.ID, Floor: 2, Room: "Room 3"},
			{ID: s.ids(), Name: "Cleo Diaz", Rent: decimal.NewFromInt(1200), LeaseStart: leaseStart, LeaseEnd: leaseEnd, ContractStatus: domain.ContractAdvancePaid, PropertyID: harbor.ID, Floor: 1, Room: domain.AllRooms},
		}
		if report.Properties > 0 {
			if report.Tenants, err = seedCollection(ctx, s.tenants, tenants); err != nil {
				return err
			}
		}

		if report.Tenants > 0 {
			paidOn := domain.NewDate(month.From.Year(), month.From.Month(), 2)
			payments := []domain.Payment{
				{ID: s.ids(), TenantID: tenants[0].ID, Amount: tenants[0].Rent, Date: paidOn, Month: paidOn.MonthLabel(), Status: domain.PaymentPaid},
				{ID: s.ids(), TenantID: tenants[1].ID, Amount: decimal.NewFromInt(400), Date: paidOn, Month: paidOn.MonthLabel(), Status: domain.PaymentPartial},
			}
			if report.Payments, err = seedCollection(ctx, s.payments, payments); err != nil {
				return err
			}
		}

		todos := []domain.Todo{
			{ID: s.ids(), Text: "Inspect Maple Court smoke alarms", CreatedAt: now.Add(-48 * time.Hour)},
			{ID: s.ids(), Text: "Chase Ben Carter for the rent balance", CreatedAt: now.Add(-24 * time.Hour)},
			{ID: s.ids(), Text: "Renew Harbor View insurance", Completed: true, CreatedAt: now.Add(-72 * time.Hour)},
		}
		report.Todos, err = seedCollection(ctx, s.todos, todos)
		return err
	})
	return report, err
}
