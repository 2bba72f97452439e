package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionStatus is the rent status of a tenant within a period.
type CollectionStatus string

const (
	CollectionStatusPaid    CollectionStatus = "paid"
	CollectionStatusOverdue CollectionStatus = "overdue"
	CollectionStatusPending CollectionStatus = "pending"
)

// PeriodKey identifies a calendar month.
type PeriodKey struct {
	Year  int `bson:"year" json:"year"`
	Month int `bson:"month" json:"month"`
}

func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Start returns the first instant of the month in UTC.
func (k PeriodKey) Start() time.Time {
	return time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts the key by n months (n may be negative).
func (k PeriodKey) AddMonths(n int) PeriodKey {
	t := k.Start().AddDate(0, n, 0)
	return PeriodKey{Year: t.Year(), Month: int(t.Month())}
}

// Before reports whether k is an earlier month than other.
func (k PeriodKey) Before(other PeriodKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// PeriodKeyOf returns the month containing t (UTC).
func PeriodKeyOf(t time.Time) PeriodKey {
	t = t.UTC()
	return PeriodKey{Year: t.Year(), Month: int(t.Month())}
}

type AmountCount struct {
	Count  int     `bson:"count" json:"count"`
	Amount float64 `bson:"amount" json:"amount"`
}

type CollectionBreakdown struct {
	OnTime  AmountCount `bson:"onTime" json:"onTime"`
	Late    AmountCount `bson:"late" json:"late"`
	Pending AmountCount `bson:"pending" json:"pending"`
}

// CollectionSummary holds the period totals.
// OutstandingRent = ExpectedRent - CollectedRent and CollectionRate is 0-100.
type CollectionSummary struct {
	TotalUnits      int                 `bson:"totalUnits" json:"totalUnits"`
	OccupiedUnits   int                 `bson:"occupiedUnits" json:"occupiedUnits"`
	ExpectedRent    float64             `bson:"expectedRent" json:"expectedRent"`
	CollectedRent   float64             `bson:"collectedRent" json:"collectedRent"`
	OutstandingRent float64             `bson:"outstandingRent" json:"outstandingRent"`
	CollectionRate  float64             `bson:"collectionRate" json:"collectionRate"`
	Breakdown       CollectionBreakdown `bson:"breakdown" json:"breakdown"`
}

type TenantContact struct {
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type PaymentHistory struct {
	LastPayment     *time.Time `bson:"lastPayment,omitempty" json:"lastPayment,omitempty"`
	AverageDaysLate float64    `bson:"averageDaysLate" json:"averageDaysLate"`
	MissedPayments  int        `bson:"missedPayments" json:"missedPayments"`
}

// TenantCollectionRow is one tenant's line within a period. TotalOwed = RentDue + LateFees.
type TenantCollectionRow struct {
	TenantID       primitive.ObjectID `bson:"tenantId" json:"tenantId"`
	Name           string             `bson:"name" json:"name"`
	PropertyID     primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	Property       string             `bson:"property" json:"property"`
	Unit           string             `bson:"unit" json:"unit"`
	RentDue        float64            `bson:"rentDue" json:"rentDue"`
	LateFees       float64            `bson:"lateFees" json:"lateFees"`
	TotalOwed      float64            `bson:"totalOwed" json:"totalOwed"`
	AmountPaid     float64            `bson:"amountPaid" json:"amountPaid"`
	DueDate        time.Time          `bson:"dueDate" json:"dueDate"`
	PaidAt         *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	DaysLate       int                `bson:"daysLate" json:"daysLate"`
	Status         CollectionStatus   `bson:"status" json:"status"`
	PaymentMethod  PaymentMethod      `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Contact        TenantContact      `bson:"contact" json:"contact"`
	PaymentHistory PaymentHistory     `bson:"paymentHistory" json:"paymentHistory"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// RentCollectionPeriod is the persisted monthly snapshot, unique per
// (organizationId, period.year, period.month).
type RentCollectionPeriod struct {
	Base           `bson:",inline"`
	OrganizationID primitive.ObjectID    `bson:"organizationId" json:"organizationId"`
	Period         PeriodKey             `bson:"period" json:"period"`
	Summary        CollectionSummary     `bson:"summary" json:"summary"`
	Tenants        []TenantCollectionRow `bson:"tenants" json:"tenants"`
	Version        int64                 `bson:"version" json:"version"`
	GeneratedAt    time.Time             `bson:"generatedAt" json:"generatedAt"`
	LastUpdated    time.Time             `bson:"lastUpdated" json:"lastUpdated"`
}
