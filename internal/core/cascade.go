package core

import (
	"context"
	"fmt"

	"rentledger/pkg/domain"

	"github.com/sirupsen/logrus"
)

// Rule names registered by NewDefaultRulesEngine.
const (
	RuleTenantProperty = "tenant_property"
	RulePaymentTenant  = "payment_tenant"
)

// NewDefaultRulesEngine returns an engine with the referential rules for
// tenants and payments registered.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(tenantPropertyRule{})
	engine.Register(paymentTenantRule{})
	return engine
}

// tenantPropertyRule blocks tenant writes whose property is archived. A
// property that does not resolve blocks creates and moves to it; updates that
// keep a vanished property pass so orphaned tenants can still be archived.
type tenantPropertyRule struct{}

func (tenantPropertyRule) Name() string { return RuleTenantProperty }

func (r tenantPropertyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityTenant || change.After == nil {
			continue
		}
		tenant, ok := change.After.(domain.Tenant)
		if !ok {
			return domain.Result{}, fmt.Errorf("%s: unexpected payload %T", r.Name(), change.After)
		}
		property, found := view.FindProperty(tenant.PropertyID)
		switch {
		case !found && keepsProperty(change, tenant):
			continue
		case !found:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("property %q does not exist", tenant.PropertyID),
				Entity:   domain.EntityTenant,
				EntityID: tenant.ID,
				Cause:    domain.ErrDanglingReference,
			})
		case property.Archived:
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("property %q is archived", property.Name),
				Entity:   domain.EntityTenant,
				EntityID: tenant.ID,
				Cause:    domain.ErrPropertyArchived,
			})
		default:
			if err := tenant.CheckPlacement(property); err != nil {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  err.Error(),
					Entity:   domain.EntityTenant,
					EntityID: tenant.ID,
					Cause:    err,
				})
			}
		}
	}
	return res, nil
}

// keepsProperty reports whether change is an update that leaves the tenant's
// property reference as it was.
func keepsProperty(change domain.Change, after domain.Tenant) bool {
	if change.Action != domain.ActionUpdate {
		return false
	}
	before, ok := change.Before.(domain.Tenant)
	return ok && before.PropertyID == after.PropertyID
}

// paymentTenantRule blocks payment writes for tenants that are effectively
// archived. An unresolvable tenant or property counts as archived.
type paymentTenantRule struct{}

func (paymentTenantRule) Name() string { return RulePaymentTenant }

func (r paymentTenantRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, change := range changes {
		if change.Entity != domain.EntityPayment || change.After == nil {
			continue
		}
		payment, ok := change.After.(domain.Payment)
		if !ok {
			return domain.Result{}, fmt.Errorf("%s: unexpected payload %T", r.Name(), change.After)
		}
		tenant, found := view.FindTenant(payment.TenantID)
		var reason string
		switch {
		case !found:
			reason = fmt.Sprintf("tenant %q does not exist", payment.TenantID)
		case tenant.Archived:
			reason = fmt.Sprintf("tenant %q is archived", tenant.Name)
		default:
			p, ok := view.FindProperty(tenant.PropertyID)
			switch {
			case !ok:
				reason = fmt.Sprintf("property %q of tenant %q does not exist", tenant.PropertyID, tenant.Name)
			case p.Archived:
				reason = fmt.Sprintf("property %q of tenant %q is archived", p.Name, tenant.Name)
			}
		}
		if reason == "" {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  reason,
			Entity:   domain.EntityPayment,
			EntityID: payment.ID,
			Cause:    domain.ErrTenantArchived,
		})
	}
	return res, nil
}

// Coordinator applies cross-collection rules that storage cannot enforce.
type Coordinator struct {
	engine   *domain.RulesEngine
	tenants  *Repository[domain.Tenant]
	payments *Repository[domain.Payment]
	log      *logrus.Entry
}

// NewCoordinator wires a coordinator. A nil engine uses NewDefaultRulesEngine.
func NewCoordinator(engine *domain.RulesEngine, tenants *Repository[domain.Tenant], payments *Repository[domain.Payment], log *logrus.Entry) *Coordinator {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	if log == nil {
		log = discardEntry()
	}
	return &Coordinator{engine: engine, tenants: tenants, payments: payments, log: log.WithField("component", "cascade")}
}

// Engine exposes the rules engine so callers can register extra rules.
func (c *Coordinator) Engine() *domain.RulesEngine { return c.engine }

// Check evaluates changes against view. Warnings are logged; blocking
// violations are returned as a domain.RuleViolationError.
func (c *Coordinator) Check(ctx context.Context, view domain.RuleView, changes ...domain.Change) error {
	res, err := c.engine.Evaluate(ctx, view, changes)
	if err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			c.log.WithFields(logrus.Fields{"rule": v.Rule, "entity": v.Entity, "id": v.EntityID}).Warn(v.Message)
		}
	}
	if res.HasBlocking() {
		return domain.RuleViolationError{Result: res}
	}
	return nil
}

// DeleteTenant removes every payment of the tenant and then the tenant. It
// returns how many payments were removed and whether the tenant existed.
// The two writes are not atomic: a failure between them leaves the tenant
// without payments.
func (c *Coordinator) DeleteTenant(ctx context.Context, id string) (int, bool, error) {
	removed, err := c.payments.DeleteWhere(ctx, func(p domain.Payment) bool { return p.TenantID == id })
	if err != nil {
		return 0, false, fmt.Errorf("delete payments of tenant %s: %w", id, err)
	}
	found, err := c.tenants.Delete(ctx, id)
	if err != nil {
		return removed, false, fmt.Errorf("delete tenant %s: %w", id, err)
	}
	if removed > 0 {
		c.log.WithFields(logrus.Fields{"tenant": id, "payments": removed}).Info("cascaded tenant delete")
	}
	return removed, found, nil
}
