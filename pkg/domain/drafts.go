package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateDraft runs struct-tag validation and converts failures into a
// ValidationError keyed by field name.
func validateDraft(entity EntityType, draft any) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %s: %w", entity, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return ValidationError{Entity: entity, Fields: fields}
}

func invalid(entity EntityType, field, reason string) error {
	return ValidationError{Entity: entity, Fields: map[string]string{field: reason}}
}

func roomLabel(i int) string { return fmt.Sprintf("Room %d", i) }

// PropertyDraft is the editable form of a Property.
type PropertyDraft struct {
	Name       string `validate:"required"`
	Address    string `validate:"required"`
	FloorCount int    `validate:"gte=0"`
	RoomCount  int    `validate:"gte=0"`
	// FloorRooms optionally lists how many rooms each floor has. When set it
	// must have one entry per floor.
	FloorRooms []int `validate:"omitempty,dive,gte=0"`
	Archived   bool
}

// Build validates the draft and returns the committed Property.
func (d PropertyDraft) Build(id string) (Property, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
	if err := validateDraft(EntityProperty, d); err != nil {
		return Property{}, err
	}
	rooms := d.RoomCount
	if len(d.FloorRooms) > 0 {
		if len(d.FloorRooms) != d.FloorCount {
			return Property{}, invalid(EntityProperty, "FloorRooms", "one allocation per floor")
		}
		sum := 0
		for _, n := range d.FloorRooms {
			sum += n
		}
		if d.RoomCount != 0 && d.RoomCount != sum {
			return Property{}, invalid(EntityProperty, "RoomCount", "must equal the sum of floor allocations")
		}
		rooms = sum
	}
	return Property{
		ID:         id,
		Name:       d.Name,
		Address:    d.Address,
		FloorCount: d.FloorCount,
		RoomCount:  rooms,
		Archived:   d.Archived,
	}, nil
}

// Draft returns the editable form of p.
func (p Property) Draft() PropertyDraft {
	return PropertyDraft{
		Name:       p.Name,
		Address:    p.Address,
		FloorCount: p.FloorCount,
		RoomCount:  p.RoomCount,
		Archived:   p.Archived,
	}
}

// TenantDraft is the editable form of a Tenant.
type TenantDraft struct {
	Name           string `validate:"required"`
	Rent           decimal.Decimal
	LeaseStart     Date
	LeaseEnd       Date
	ContractStatus ContractStatus `validate:"required"`
	PropertyID     string         `validate:"required"`
	Floor          int            `validate:"gte=0"`
	Room           string
	Archived       bool
}

// Build validates the draft and returns the committed Tenant. Placement
// against the property is checked separately by CheckPlacement.
func (d TenantDraft) Build(id string) (Tenant, error) {
	d.Name = strings.TrimSpace(d.Name)
	if err := validateDraft(EntityTenant, d); err != nil {
		return Tenant{}, err
	}
	if d.Rent.IsNegative() {
		return Tenant{}, invalid(EntityTenant, "Rent", "gte=0")
	}
	if !d.ContractStatus.Valid() {
		return Tenant{}, invalid(EntityTenant, "ContractStatus", "oneof")
	}
	room := strings.TrimSpace(d.Room)
	if room == "" {
		room = AllRooms
	}
	return Tenant{
		ID:             id,
		Name:           d.Name,
		Rent:           d.Rent,
		LeaseStart:     d.LeaseStart,
		LeaseEnd:       d.LeaseEnd,
		ContractStatus: d.ContractStatus,
		PropertyID:     d.PropertyID,
		Floor:          d.Floor,
		Room:           room,
		Archived:       d.Archived,
	}, nil
}

// Draft returns the editable form of t.
func (t Tenant) Draft() TenantDraft {
	return TenantDraft{
		Name:           t.Name,
		Rent:           t.Rent,
		LeaseStart:     t.LeaseStart,
		LeaseEnd:       t.LeaseEnd,
		ContractStatus: t.ContractStatus,
		PropertyID:     t.PropertyID,
		Floor:          t.Floor,
		Room:           t.Room,
		Archived:       t.Archived,
	}
}

// CheckPlacement verifies that the tenant's floor and room exist on p.
func (t Tenant) CheckPlacement(p Property) error {
	if p.FloorCount > 0 && (t.Floor < 1 || t.Floor > p.FloorCount) {
		return invalid(EntityTenant, "Floor", fmt.Sprintf("must be between 1 and %d", p.FloorCount))
	}
	if t.Room == AllRooms {
		return nil
	}
	for _, label := range RoomLabels(p) {
		if label == t.Room {
			return nil
		}
	}
	return invalid(EntityTenant, "Room", fmt.Sprintf("unknown room %q", t.Room))
}

// PaymentDraft is the editable form of a Payment. An empty Status is filled
// in by the service from the amount and the tenant's rent.
type PaymentDraft struct {
	TenantID string `validate:"required"`
	Amount   decimal.Decimal
	Date     Date
	Month    string
	Status   PaymentStatus
	Archived bool
}

// Build validates the draft and returns the committed Payment.
func (d PaymentDraft) Build(id string) (Payment, error) {
	if err := validateDraft(EntityPayment, d); err != nil {
		return Payment{}, err
	}
	if d.Amount.IsNegative() {
		return Payment{}, invalid(EntityPayment, "Amount", "gte=0")
	}
	if d.Date.IsZero() {
		return Payment{}, invalid(EntityPayment, "Date", "required")
	}
	if !d.Status.Valid() {
		return Payment{}, invalid(EntityPayment, "Status", "oneof")
	}
	month := strings.TrimSpace(d.Month)
	if month == "" {
		month = d.Date.MonthLabel()
	}
	return Payment{
		ID:       id,
		TenantID: d.TenantID,
		Amount:   d.Amount,
		Date:     d.Date,
		Month:    month,
		Status:   d.Status,
		Archived: d.Archived,
	}, nil
}

// Draft returns the editable form of p.
func (p Payment) Draft() PaymentDraft {
	return PaymentDraft{
		TenantID: p.TenantID,
		Amount:   p.Amount,
		Date:     p.Date,
		Month:    p.Month,
		Status:   p.Status,
		Archived: p.Archived,
	}
}

// TodoDraft is the editable form of a Todo.
type TodoDraft struct {
	Text      string `validate:"required"`
	Completed bool
}

// Build validates the draft and returns the committed Todo.
func (d TodoDraft) Build(id string, now time.Time) (Todo, error) {
	d.Text = strings.TrimSpace(d.Text)
	if err := validateDraft(EntityTodo, d); err != nil {
		return Todo{}, err
	}
	return Todo{ID: id, Text: d.Text, Completed: d.Completed, CreatedAt: now}, nil
}

// UserDraft is the registration form of a User.
type UserDraft struct {
	Username string `validate:"required"`
	Name     string
	Password string `validate:"required"`
}

// Build validates the draft and returns the committed User.
func (d UserDraft) Build(id string) (User, error) {
	d.Username = strings.TrimSpace(d.Username)
	d.Name = strings.TrimSpace(d.Name)
	if err := validateDraft(EntityUser, d); err != nil {
		return User{}, err
	}
	if strings.ContainsAny(d.Username, " \t\n") {
		return User{}, invalid(EntityUser, "Username", "no whitespace")
	}
	return User{ID: id, Username: d.Username, Name: d.Name, Password: d.Password}, nil
}

// SameUsername compares usernames case-insensitively.
func SameUsername(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
