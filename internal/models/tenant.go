package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TenantStatus is the lease state of a tenant.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusLate     TenantStatus = "late"
	TenantStatusNotice   TenantStatus = "notice"
	TenantStatusInactive TenantStatus = "inactive"
	TenantStatusArchived TenantStatus = "archived"
)

// OccupiableTenantStatuses are the statuses counted as occupying a unit and owing rent.
var OccupiableTenantStatuses = []TenantStatus{TenantStatusActive, TenantStatusLate, TenantStatusNotice}

// Tenant is a renter of a unit.
type Tenant struct {
	Base           `bson:",inline"`
	OrganizationID primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	PropertyID     primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Phone          string             `bson:"phone" json:"phone"`
	Unit           string             `bson:"unit" json:"unit"`
	Status         TenantStatus       `bson:"status" json:"status"`
	RentAmount     float64            `bson:"rentAmount" json:"rentAmount"`
	LateFee        float64            `bson:"lateFee" json:"lateFee"`
	RentDueDay     int                `bson:"rentDueDay" json:"rentDueDay"` // 1-28, 0 means the 1st
	LeaseStartDate *time.Time         `bson:"leaseStartDate,omitempty" json:"leaseStartDate,omitempty"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// DueDay returns the clamped day of month rent falls due.
func (t *Tenant) DueDay() int {
	switch {
	case t.RentDueDay < 1:
		return 1
	case t.RentDueDay > 28:
		return 28
	default:
		return t.RentDueDay
	}
}
