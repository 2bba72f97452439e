package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Property is a building or complex managed by an organization.
type Property struct {
	Base           `bson:",inline"`
	OrganizationID primitive.ObjectID `bson:"organizationId" json:"organizationId"`
	Name           string             `bson:"name" json:"name"`
	Address        string             `bson:"address" json:"address"`
	NumberOfUnits  int                `bson:"numberOfUnits" json:"numberOfUnits"`
	Status         string             `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}
