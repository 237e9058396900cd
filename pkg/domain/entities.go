// Package domain defines the persisted records, value types, and rule
// evaluation primitives used by rentledger.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in a collection.
type EntityType string

// Supported entity type identifiers used in Change records and errors.
const (
	EntityProperty EntityType = "property"
	EntityTenant   EntityType = "tenant"
	EntityPayment  EntityType = "payment"
	EntityTodo     EntityType = "todo"
	EntityUser     EntityType = "user"
)

// ContractStatus is the lease state recorded against a tenant.
type ContractStatus string

// Contract states a tenant can be in.
const (
	ContractAdvancePaid ContractStatus = "advance-paid"
	ContractActive      ContractStatus = "contract-active"
	ContractRenewed     ContractStatus = "contract-renewed"
	ContractBreach      ContractStatus = "contract-breach"
	ContractExpired     ContractStatus = "contract-expired"
	ContractNotice      ContractStatus = "notice-period"
)

// ContractStatuses lists every valid ContractStatus in display order.
var ContractStatuses = []ContractStatus{
	ContractAdvancePaid,
	ContractActive,
	ContractRenewed,
	ContractBreach,
	ContractExpired,
	ContractNotice,
}

// Valid reports whether s is a known contract state.
func (s ContractStatus) Valid() bool {
	for _, known := range ContractStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus is the state recorded on a payment.
type PaymentStatus string

// Payment states.
const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPending PaymentStatus = "pending"
	PaymentDue     PaymentStatus = "due"
	PaymentOverdue PaymentStatus = "overdue"
)

// PaymentStatuses lists every valid PaymentStatus.
var PaymentStatuses = []PaymentStatus{PaymentPaid, PaymentPartial, PaymentPending, PaymentDue, PaymentOverdue}

// Valid reports whether s is a known payment state.
func (s PaymentStatus) Valid() bool {
	for _, known := range PaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DisplayStatus is the derived status shown for a tenant. It is either a
// PaymentStatus or one of the sentinels below.
type DisplayStatus string

// Derived status sentinels.
const (
	StatusNoPayments DisplayStatus = "no payments"
	StatusArchived   DisplayStatus = "archived"
)

// AllRooms is the room label used when a tenant rents every room of a property.
const AllRooms = "All Rooms"

// Property is a rental building.
type Property struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	FloorCount int    `json:"floorCount"`
	RoomCount  int    `json:"roomCount"`
	Archived   bool   `json:"archived"`
}

// RecordID implements Record.
func (p Property) RecordID() string { return p.ID }

// Tenant rents one room (or all rooms) of a property. PropertyID is a
// non-enforced reference and may dangle.
type Tenant struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Rent           decimal.Decimal `json:"rent"`
	LeaseStart     Date            `json:"leaseStart"`
	LeaseEnd       Date            `json:"leaseEnd"`
	ContractStatus ContractStatus  `json:"contractStatus"`
	PropertyID     string          `json:"propertyId"`
	Floor          int             `json:"floor"`
	Room           string          `json:"room"`
	Archived       bool            `json:"archived"`
}

// RecordID implements Record.
func (t Tenant) RecordID() string { return t.ID }

// Payment is a rent payment made by a tenant. TenantID may dangle.
type Payment struct {
	ID       string          `json:"id"`
	TenantID string          `json:"tenantId"`
	Amount   decimal.Decimal `json:"amount"`
	Date     Date            `json:"date"`
	Month    string          `json:"month"`
	Status   PaymentStatus   `json:"status"`
	Archived bool            `json:"archived"`
}

// RecordID implements Record.
func (p Payment) RecordID() string { return p.ID }

// Todo is a free-form reminder.
type Todo struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordID implements Record.
func (t Todo) RecordID() string { return t.ID }

// User is a local account. Password is stored and compared as given.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// RecordID implements Record.
func (u User) RecordID() string { return u.ID }

// Record is implemented by every entity persisted in a collection.
type Record interface {
	RecordID() string
}

// RoomLabels returns the room labels a tenant of p may be assigned to,
// excluding AllRooms.
func RoomLabels(p Property) []string {
	labels := make([]string, 0, p.RoomCount)
	for i := 1; i <= p.RoomCount; i++ {
		labels = append(labels, roomLabel(i))
	}
	return labels
}
