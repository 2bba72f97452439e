package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Expense and MaintenanceRequest are only read by the export pipeline.
type Expense struct {
	Base           `bson:",inline"`
	OrganizationID primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	PropertyID     primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	Description    string             `bson:"description" json:"description"`
	Category       string             `bson:"category" json:"category"`
	Amount         float64            `bson:"amount" json:"amount"`
	Date           time.Time          `bson:"date" json:"date"`
}

type MaintenanceRequest struct {
	Base           `bson:",inline"`
	OrganizationID primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	PropertyID     primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	TenantID       primitive.ObjectID `bson:"tenantId,omitempty" json:"tenantId,omitempty"`
	Description    string             `bson:"description" json:"description"`
	Priority       string             `bson:"priority" json:"priority"`
	Status         string             `bson:"status" json:"status"`
	EstimatedCost  float64            `bson:"estimatedCost" json:"estimatedCost"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
