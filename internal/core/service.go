// Package core implements rentledger's storage engine: the collection store,
// typed repositories, derived status and the rules that keep tenants and
// payments consistent with their ancestors.
package core

import (
	"context"
	"errors"
	"time"

	"rentledger/internal/infra/persistence/memory"
	"rentledger/internal/logging"
	"rentledger/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// IDGenerator returns a fresh record id.
type IDGenerator func() string

// Option customises a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	clock   Clock
	logger  *logrus.Entry
	metrics MetricsRecorder
	tracer  Tracer
	ids     IDGenerator
	engine  *domain.RulesEngine
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  discardEntry(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		ids:     func() string { return uuid.NewString() },
	}
}

// WithClock overrides the service clock.
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger used by the service and its components.
func WithLogger(logger *logrus.Entry) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *serviceOptions) {
		if ids != nil {
			o.ids = ids
		}
	}
}

// WithRulesEngine replaces the default rules engine.
func WithRulesEngine(engine *domain.RulesEngine) Option {
	return func(o *serviceOptions) { o.engine = engine }
}

func discardEntry() *logrus.Entry { return logging.Discard() }

// Service is the entry point used by the CLI and other collaborators. All
// reads recompute derived state from fresh collection snapshots.
type Service struct {
	store      *CollectionStore
	properties *Repository[domain.Property]
	tenants    *Repository[domain.Tenant]
	payments   *Repository[domain.Payment]
	todos      *Repository[domain.Todo]
	users      *UserRepository
	cascade    *Coordinator

	clock   Clock
	log     *logrus.Entry
	metrics MetricsRecorder
	tracer  Tracer
	ids     IDGenerator
}

// NewService builds a service whose backend is opened lazily through open.
func NewService(open BackendOpener, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	store := NewCollectionStore(open, o.logger)
	svc := &Service{
		store:      store,
		properties: NewRepository[domain.Property](store, domain.CollectionProperties, domain.EntityProperty, o.logger),
		tenants:    NewRepository[domain.Tenant](store, domain.CollectionTenants, domain.EntityTenant, o.logger),
		payments:   NewRepository[domain.Payment](store, domain.CollectionPayments, domain.EntityPayment, o.logger),
		todos:      NewRepository[domain.Todo](store, domain.CollectionTodos, domain.EntityTodo, o.logger),
		users:      NewUserRepository(store, o.logger),
		clock:      o.clock,
		log:        o.logger.WithField("component", "service"),
		metrics:    o.metrics,
		tracer:     o.tracer,
		ids:        o.ids,
	}
	svc.cascade = NewCoordinator(o.engine, svc.tenants, svc.payments, o.logger)
	return svc
}

// NewInMemoryService builds a service over a fresh in-memory backend.
func NewInMemoryService(opts ...Option) *Service {
	backend := memory.NewStore()
	return NewService(func(context.Context) (domain.CollectionBackend, error) { return backend, nil }, opts...)
}

// Store returns the collection store.
func (s *Service) Store() *CollectionStore { return s.store }

// Users returns the user repository.
func (s *Service) Users() *UserRepository { return s.users }

// Rules returns the rules engine used before writes.
func (s *Service) Rules() *domain.RulesEngine { return s.cascade.Engine() }

// Now returns the service clock's time.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Close releases the storage backend.
func (s *Service) Close() error { return s.store.Close() }

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	entry := s.log.WithField("operation", op)
	switch {
	case err == nil:
		entry.Debug("operation completed")
	case isRejection(err):
		entry.WithError(err).Warn("operation rejected")
	default:
		entry.WithError(err).Error("operation failed")
	}
	return err
}

func isRejection(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrDuplicateUsername,
		domain.ErrPropertyArchived,
		domain.ErrTenantArchived,
		domain.ErrDanglingReference,
		domain.ErrInvalidCredentials,
		domain.ErrNotAuthenticated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Service) loadSnapshot(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Properties, err = s.properties.List(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Tenants, err = s.tenants.List(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Payments, err = s.payments.List(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Todos, err = s.todos.List(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Snapshot loads every collection.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.run(ctx, "snapshot", func(ctx context.Context) error {
		var err error
		snap, err = s.loadSnapshot(ctx)
		return err
	})
	return snap, err
}

// ListProperties returns every property.
func (s *Service) ListProperties(ctx context.Context) ([]domain.Property, error) {
	var out []domain.Property
	err := s.run(ctx, "list_properties", func(ctx context.Context) error {
		var err error
		out, err = s.properties.List(ctx)
		return err
	})
	return out, err
}

// AddProperty validates draft and appends the property.
func (s *Service) AddProperty(ctx context.Context, draft domain.PropertyDraft) (domain.Property, error) {
	var created domain.Property
	err := s.run(ctx, "add_property", func(ctx context.Context) error {
		p, err := draft.Build(s.ids())
		if err != nil {
			return err
		}
		if err := s.properties.Add(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	return created, err
}

// UpdateProperty replaces the property id with draft. It reports false when
// the property does not exist.
func (s *Service) UpdateProperty(ctx context.Context, id string, draft domain.PropertyDraft) (domain.Property, bool, error) {
	var (
		updated domain.Property
		found   bool
	)
	err := s.run(ctx, "update_property", func(ctx context.Context) error {
		p, err := draft.Build(id)
		if err != nil {
			return err
		}
		if found, err = s.properties.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	return updated, found, err
}

// SetPropertyArchived flips the property's archived flag. Its tenants
// become effectively archived with it; their own flags are untouched.
func (s *Service) SetPropertyArchived(ctx context.Context, id string, archived bool) (bool, error) {
	var found bool
	err := s.run(ctx, "set_property_archived", func(ctx context.Context) error {
		p, ok, err := s.properties.Find(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			s.properties.warnMissing("archive", id)
			return nil
		}
		p.Archived = archived
		found, err = s.properties.Update(ctx, p)
		return err
	})
	return found, err
}

// DeleteProperty removes the property. Its tenants are kept and keep
// pointing at the removed id.
func (s *Service) DeleteProperty(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.run(ctx, "delete_property", func(ctx context.Context) error {
		var err error
		found, err = s.properties.Delete(ctx, id)
		return err
	})
	return found, err
}

// ListTenants returns every tenant.
func (s *Service) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	var out []domain.Tenant
	err := s.run(ctx, "list_tenants", func(ctx context.Context) error {
		var err error
		out, err = s.tenants.List(ctx)
		return err
	})
	return out, err
}

// AddTenant validates draft, checks it against its property and appends it.
func (s *Service) AddTenant(ctx context.Context, draft domain.TenantDraft) (domain.Tenant, error) {
	var created domain.Tenant
	err := s.run(ctx, "add_tenant", func(ctx context.Context) error {
		t, err := draft.Build(s.ids())
		if err != nil {
			return err
		}
		snap, err := s.loadSnapshot(ctx)
		if err != nil {
			return err
		}
		if err := s.cascade.Check(ctx, snap, domain.Change{Entity: domain.EntityTenant, Action: domain.ActionCreate, After: t}); err != nil {
			return err
		}
		if err := s.tenants.Add(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	return created, err
}

// UpdateTenant replaces tenant id with draft after the same checks as
// AddTenant. It reports false when the tenant does not exist.
func (s *Service) UpdateTenant(ctx context.Context, id string, draft domain.TenantDraft) (domain.Tenant, bool, error) {
	var (
		updated domain.Tenant
		found   bool
	)
	err := s.run(ctx, "update_tenant", func(ctx context.Context) error {
		t, err := draft.Build(id)
		if err != nil {
			return err
		}
		found, err = s.updateTenant(ctx, t)
		updated = t
		return err
	})
	return updated, found, err
}

// SetTenantArchived sets the tenant's own archived flag. It is rejected
// while the tenant's property is archived.
func (s *Service) SetTenantArchived(ctx context.Context, id string, archived bool) (bool, error) {
	var found bool
	err := s.run(ctx, "set_tenant_archived", func(ctx context.Context) error {
		t, ok, err := s.tenants.Find(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			s.tenants.warnMissing("archive", id)
			return nil
		}
		t.Archived = archived
		found, err = s.updateTenant(ctx, t)
		return err
	})
	return found, err
}

func (s *Service) updateTenant(ctx context.Context, t domain.Tenant) (bool, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return false, err
	}
	before, ok := snap.FindTenant(t.ID)
	if !ok {
		s.tenants.warnMissing("update", t.ID)
		return false, nil
	}
	change := domain.Change{Entity: domain.EntityTenant, Action: domain.ActionUpdate, Before: before, After: t}
	if err := s.cascade.Check(ctx, snap, change); err != nil {
		return false, err
	}
	return s.tenants.Update(ctx, t)
}

// DeleteTenant removes the tenant together with all of its payments and
// returns the number of payments removed.
func (s *Service) DeleteTenant(ctx context.Context, id string) (int, bool, error) {
	var (
		removed int
		found   bool
	)
	err := s.run(ctx, "delete_tenant", func(ctx context.Context) error {
		var err error
		removed, found, err = s.cascade.DeleteTenant(ctx, id)
		return err
	})
	return removed, found, err
}

// DefaultPaymentStatus derives a status from the amount paid against rent.
func DefaultPaymentStatus(amount, rent decimal.Decimal) domain.PaymentStatus {
	switch {
	case !amount.IsPositive():
		return domain.PaymentPending
	case amount.GreaterThanOrEqual(rent):
		return domain.PaymentPaid
	default:
		return domain.PaymentPartial
	}
}

// preparePayment validates draft before touching storage, then fills in a
// missing status from the tenant's rent.
func (s *Service) preparePayment(ctx context.Context, id string, draft domain.PaymentDraft) (domain.Payment, Snapshot, error) {
	candidate := draft
	if candidate.Status == "" {
		candidate.Status = domain.PaymentPending
	}
	if _, err := candidate.Build(id); err != nil {
		return domain.Payment{}, Snapshot{}, err
	}
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return domain.Payment{}, Snapshot{}, err
	}
	if draft.Status == "" {
		rent := decimal.Zero
		if t, ok := snap.FindTenant(draft.TenantID); ok {
			rent = t.Rent
		}
		draft.Status = DefaultPaymentStatus(draft.Amount, rent)
	}
	p, err := draft.Build(id)
	return p, snap, err
}

// ListPayments returns every payment.
func (s *Service) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	err := s.run(ctx, "list_payments", func(ctx context.Context) error {
		var err error
		out, err = s.payments.List(ctx)
		return err
	})
	return out, err
}

// AddPayment records a payment for a tenant that is not effectively archived.
func (s *Service) AddPayment(ctx context.Context, draft domain.PaymentDraft) (domain.Payment, error) {
	var created domain.Payment
	err := s.run(ctx, "add_payment", func(ctx context.Context) error {
		p, snap, err := s.preparePayment(ctx, s.ids(), draft)
		if err != nil {
			return err
		}
		if err := s.cascade.Check(ctx, snap, domain.Change{Entity: domain.EntityPayment, Action: domain.ActionCreate, After: p}); err != nil {
			return err
		}
		if err := s.payments.Add(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	return created, err
}

// UpdatePayment replaces payment id with draft. It reports false when the
// payment does not exist.
func (s *Service) UpdatePayment(ctx context.Context, id string, draft domain.PaymentDraft) (domain.Payment, bool, error) {
	var (
		updated domain.Payment
		found   bool
	)
	err := s.run(ctx, "update_payment", func(ctx context.Context) error {
		p, snap, err := s.preparePayment(ctx, id, draft)
		if err != nil {
			return err
		}
		var before domain.Payment
		for _, existing := range snap.Payments {
			if existing.ID == id {
				before, found = existing, true
				break
			}
		}
		if !found {
			s.payments.warnMissing("update", id)
			return nil
		}
		change := domain.Change{Entity: domain.EntityPayment, Action: domain.ActionUpdate, Before: before, After: p}
		if err := s.cascade.Check(ctx, snap, change); err != nil {
			found = false
			return err
		}
		if found, err = s.payments.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	return updated, found, err
}

// DeletePayment removes one payment.
func (s *Service) DeletePayment(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.run(ctx, "delete_payment", func(ctx context.Context) error {
		var err error
		found, err = s.payments.Delete(ctx, id)
		return err
	})
	return found, err
}

// ListTodos returns every todo.
func (s *Service) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	var out []domain.Todo
	err := s.run(ctx, "list_todos", func(ctx context.Context) error {
		var err error
		out, err = s.todos.List(ctx)
		return err
	})
	return out, err
}

// AddTodo appends a todo stamped with the service clock.
func (s *Service) AddTodo(ctx context.Context, draft domain.TodoDraft) (domain.Todo, error) {
	var created domain.Todo
	err := s.run(ctx, "add_todo", func(ctx context.Context) error {
		t, err := draft.Build(s.ids(), s.clock.Now())
		if err != nil {
			return err
		}
		if err := s.todos.Add(ctx, t); err != nil {
			return err
		}
		created = t
		return nil
	})
	return created, err
}

// ToggleTodo flips the completed flag of todo id.
func (s *Service) ToggleTodo(ctx context.Context, id string) (domain.Todo, bool, error) {
	return s.editTodo(ctx, "toggle_todo", id, func(t *domain.Todo) error {
		t.Completed = !t.Completed
		return nil
	})
}

// RenameTodo replaces the text of todo id.
func (s *Service) RenameTodo(ctx context.Context, id, text string) (domain.Todo, bool, error) {
	draft := domain.TodoDraft{Text: text}
	return s.editTodo(ctx, "rename_todo", id, func(t *domain.Todo) error {
		built, err := draft.Build(t.ID, t.CreatedAt)
		if err != nil {
			return err
		}
		t.Text = built.Text
		return nil
	})
}

func (s *Service) editTodo(ctx context.Context, op, id string, edit func(*domain.Todo) error) (domain.Todo, bool, error) {
	var (
		edited domain.Todo
		found  bool
	)
	err := s.run(ctx, op, func(ctx context.Context) error {
		return s.todos.Mutate(ctx, func(todos []domain.Todo) ([]domain.Todo, error) {
			for i := range todos {
				if todos[i].ID != id {
					continue
				}
				if err := edit(&todos[i]); err != nil {
					return nil, err
				}
				edited, found = todos[i], true
				return todos, nil
			}
			s.todos.warnMissing(op, id)
			return nil, errUnchanged
		})
	})
	return edited, found, err
}

// DeleteTodo removes todo id.
func (s *Service) DeleteTodo(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.run(ctx, "delete_todo", func(ctx context.Context) error {
		var err error
		found, err = s.todos.Delete(ctx, id)
		return err
	})
	return found, err
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.run(ctx, "list_users", func(ctx context.Context) error {
		var err error
		out, err = s.users.List(ctx)
		return err
	})
	return out, err
}

// RegisterUser creates a user with a case-insensitively unique username.
func (s *Service) RegisterUser(ctx context.Context, draft domain.UserDraft) (domain.User, error) {
	var created domain.User
	err := s.run(ctx, "register_user", func(ctx context.Context) error {
		u, err := draft.Build(s.ids())
		if err != nil {
			return err
		}
		if err := s.users.Add(ctx, u); err != nil {
			return err
		}
		created = u
		return nil
	})
	return created, err
}

// LatestPaymentStatus returns the display status of one tenant.
func (s *Service) LatestPaymentStatus(ctx context.Context, tenantID string) (domain.DisplayStatus, error) {
	var status domain.DisplayStatus
	err := s.run(ctx, "latest_payment_status", func(ctx context.Context) error {
		snap, err := s.loadSnapshot(ctx)
		if err != nil {
			return err
		}
		status = snap.LatestPaymentStatus(tenantID)
		return nil
	})
	return status, err
}

// MonthlySummary aggregates the current calendar month.
func (s *Service) MonthlySummary(ctx context.Context) (MonthlySummary, error) {
	var summary MonthlySummary
	err := s.run(ctx, "monthly_summary", func(ctx context.Context) error {
		snap, err := s.loadSnapshot(ctx)
		if err != nil {
			return err
		}
		summary = snap.MonthlyRentSummary(s.clock.Now())
		return nil
	})
	return summary, err
}

// TenantOverview derives the tenant table for the current month.
func (s *Service) TenantOverview(ctx context.Context) ([]TenantRow, error) {
	var rows []TenantRow
	err := s.run(ctx, "tenant_overview", func(ctx context.Context) error {
		snap, err := s.loadSnapshot(ctx)
		if err != nil {
			return err
		}
		rows = snap.TenantOverview(s.clock.Now())
		return nil
	})
	return rows, err
}

// PropertyOverview derives the property table.
func (s *Service) PropertyOverview(ctx context.Context) ([]PropertyRow, error) {
	var rows []PropertyRow
	err := s.run(ctx, "property_overview", func(ctx context.Context) error {
		snap, err := s.loadSnapshot(ctx)
		if err != nil {
			return err
		}
		rows = snap.PropertyOverview()
		return nil
	})
	return rows, err
}
