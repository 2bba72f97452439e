package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethod is the channel a payment came through.
type PaymentMethod string

const (
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodOther        PaymentMethod = "other"
)

// Payment is a rent payment recorded against a tenant.
type Payment struct {
	Base           `bson:",inline"`
	OrganizationID primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	TenantID       primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	PropertyID     primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	Amount         float64            `bson:"amount" json:"amount"`
	PaymentDate    time.Time          `bson:"paymentDate" json:"paymentDate"`
	RentMonth      string             `bson:"rentMonth,omitempty" json:"rentMonth,omitempty"` // YYYY-MM
	PaymentMethod  PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	Status         PaymentStatus      `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// Settled reports whether the payment counts towards a period.
func (p *Payment) Settled() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusPaid
}

// RentMonthLayout is the only accepted rentMonth form. Anything else is
// ignored and the payment date decides the period.
const RentMonthLayout = "2006-01"

// EffectivePeriod is the rent month the payment settles.
func (p *Payment) EffectivePeriod() PeriodKey {
	if p.RentMonth != "" {
		if t, err := time.Parse(RentMonthLayout, p.RentMonth); err == nil {
			return PeriodKey{Year: t.Year(), Month: int(t.Month())}
		}
	}
	d := p.PaymentDate.UTC()
	return PeriodKey{Year: d.Year(), Month: int(d.Month())}
}
