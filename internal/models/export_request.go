package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExportType is the entity collection an export renders.
type ExportType string

const (
	ExportTypeTenants        ExportType = "tenants"
	ExportTypeProperties     ExportType = "properties"
	ExportTypePayments       ExportType = "payments"
	ExportTypeExpenses       ExportType = "expenses"
	ExportTypeMaintenance    ExportType = "maintenance"
	ExportTypeRentCollection ExportType = "rent_collection"
)

// ExportFormat is the output file format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus moves pending -> processing -> completed|failed and never back.
type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ExportStatus) Terminal() bool {
	return s == ExportStatusCompleted || s == ExportStatusFailed
}

type ExportFilters struct {
	StartDate  *time.Time          `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate    *time.Time          `bson:"endDate,omitempty" json:"endDate,omitempty"`
	PropertyID *primitive.ObjectID `bson:"propertyId,omitempty" json:"propertyId,omitempty"`
	Status     string              `bson:"status,omitempty" json:"status,omitempty"`
}

type ExportOptions struct {
	Title          string   `bson:"title,omitempty" json:"title,omitempty"`
	Fields         []string `bson:"fields,omitempty" json:"fields,omitempty"` // dot paths, e.g. propertyId.name
	IncludeHeaders *bool    `bson:"includeHeaders,omitempty" json:"includeHeaders,omitempty"`
}

// HeadersEnabled defaults to true when the option is unset.
func (o ExportOptions) HeadersEnabled() bool {
	return o.IncludeHeaders == nil || *o.IncludeHeaders
}

type ExportResult struct {
	FileURL     string    `bson:"fileUrl" json:"fileUrl"`
	FileName    string    `bson:"fileName" json:"fileName"`
	FileKey     string    `bson:"fileKey" json:"-"`
	FileSize    int64     `bson:"fileSize" json:"fileSize"`
	RecordCount int       `bson:"recordCount" json:"recordCount"`
	ExpiresAt   time.Time `bson:"expiresAt" json:"expiresAt"`
}

type ExportError struct {
	Message string `bson:"message" json:"message"`
	Details string `bson:"details,omitempty" json:"details,omitempty"`
}

// ExportRequest tracks one asynchronous export job.
type ExportRequest struct {
	Base           `bson:",inline"`
	OrganizationID primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	RequestedBy    string             `bson:"requestedBy" json:"requestedBy"`
	Type           ExportType         `bson:"type" json:"type"`
	Format         ExportFormat       `bson:"format" json:"format"`
	Filters        ExportFilters      `bson:"filters" json:"filters"`
	Options        ExportOptions      `bson:"options" json:"options"`
	Status         ExportStatus       `bson:"status" json:"status"`
	Progress       int                `bson:"progress" json:"progress"`
	Result         *ExportResult      `bson:"result,omitempty" json:"result,omitempty"`
	Error          *ExportError       `bson:"error,omitempty" json:"error,omitempty"`
	TaskID         string             `bson:"taskId,omitempty" json:"taskId,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
	StartedAt      *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt    *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}
