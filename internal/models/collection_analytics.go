package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RiskScore grades how likely a tenant is to pay late.
type RiskScore string

const (
	RiskLow    RiskScore = "low"
	RiskMedium RiskScore = "medium"
	RiskHigh   RiskScore = "high"
)

// RatePolicy selects how per-period collection rates are combined.
type RatePolicy string

const (
	RatePolicyMean     RatePolicy = "mean"
	RatePolicyWeighted RatePolicy = "weighted"
)

type CollectionTrends struct {
	CollectionRateChange   float64 `json:"collectionRateChange"`
	PreviousCollectionRate float64 `json:"previousCollectionRate"`
	CollectedChange        float64 `json:"collectedChange"`
	OutstandingChange      float64 `json:"outstandingChange"`
}

type CollectionPerformance struct {
	CollectionRate       float64          `json:"collectionRate"`
	AverageDaysToCollect float64          `json:"averageDaysToCollect"`
	TotalExpected        float64          `json:"totalExpected"`
	TotalCollected       float64          `json:"totalCollected"`
	TotalOutstanding     float64          `json:"totalOutstanding"`
	Trends               CollectionTrends `json:"trends"`
}

// PropertyCollection aggregates tenant rows of one property.
type PropertyCollection struct {
	PropertyID     primitive.ObjectID `json:"propertyId"`
	PropertyName   string             `json:"propertyName"`
	TotalDue       float64            `json:"totalDue"`
	Collected      float64            `json:"collected"`
	CollectionRate float64            `json:"collectionRate"`
	TenantRows     int                `json:"tenantRows"`
}

type AmountShare struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

type PaymentMethodBreakdown struct {
	Online AmountShare `json:"online"`
	Check  AmountShare `json:"check"`
	Cash   AmountShare `json:"cash"`
	Other  AmountShare `json:"other"`
}

type CountShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// TimingBreakdown partitions tenant rows by payment timing. Early is a subset of OnTime.
type TimingBreakdown struct {
	Early  CountShare `json:"early"`
	OnTime CountShare `json:"onTime"`
	Late   CountShare `json:"late"`
}

type AnalyticsBreakdown struct {
	ByProperty      []PropertyCollection   `json:"byProperty"`
	ByPaymentMethod PaymentMethodBreakdown `json:"byPaymentMethod"`
	ByTiming        TimingBreakdown        `json:"byTiming"`
}

type ProblemTenant struct {
	TenantID        primitive.ObjectID `json:"tenantId"`
	Name            string             `json:"name"`
	Property        string             `json:"property"`
	Unit            string             `json:"unit"`
	TotalOwed       float64            `json:"totalOwed"`
	Appearances     int                `json:"appearances"`
	AverageDaysLate float64            `json:"averageDaysLate"`
	MissedPayments  int                `json:"missedPayments"`
	RiskScore       RiskScore          `json:"riskScore"`
}

// CollectionAnalytics is derived on demand from one or more RentCollectionPeriod documents.
type CollectionAnalytics struct {
	OrganizationID primitive.ObjectID    `json:"organizationId"`
	StartDate      time.Time             `json:"startDate"`
	EndDate        time.Time             `json:"endDate"`
	PeriodCount    int                   `json:"periodCount"`
	RatePolicy     RatePolicy            `json:"ratePolicy"`
	Performance    CollectionPerformance `json:"performance"`
	Breakdown      AnalyticsBreakdown    `json:"breakdown"`
	ProblemTenants []ProblemTenant       `json:"problemTenants"`
	GeneratedAt    time.Time             `json:"generatedAt"`
}

type CollectionTrendPoint struct {
	Month          int     `json:"month"`
	Year           int     `json:"year"`
	CollectionRate float64 `json:"collectionRate"`
	Collected      float64 `json:"collected"`
	Outstanding    float64 `json:"outstanding"`
	TotalUnits     int     `json:"totalUnits"`
}

type PropertyPerformance struct {
	PropertyID      primitive.ObjectID `json:"propertyId"`
	Name            string             `json:"name"`
	Address         string             `json:"address"`
	TotalUnits      int                `json:"totalUnits"`
	OccupiedUnits   int                `json:"occupiedUnits"`
	ExpectedRent    float64            `json:"expectedRent"`
	CollectedRent   float64            `json:"collectedRent"`
	OutstandingRent float64            `json:"outstandingRent"`
	CollectionRate  float64            `json:"collectionRate"`
	AverageDaysLate float64            `json:"averageDaysLate"`
}

type TenantRisk struct {
	TenantID        primitive.ObjectID `json:"tenantId"`
	Name            string             `json:"name"`
	Property        string             `json:"property"`
	Unit            string             `json:"unit"`
	TotalPayments   int                `json:"totalPayments"`
	LatePayments    int                `json:"latePayments"`
	TotalDaysLate   int                `json:"totalDaysLate"`
	TotalOwed       float64            `json:"totalOwed"`
	LastPaymentDate *time.Time         `json:"lastPaymentDate,omitempty"`
	LatePaymentRate float64            `json:"latePaymentRate"`
	AverageDaysLate float64            `json:"averageDaysLate"`
	RiskScore       RiskScore          `json:"riskScore"`
}
