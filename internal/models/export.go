package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExportRecord is the audit entry written for every generated file.
type ExportRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Resource    string             `bson:"resource" json:"resource"`
	Format      string             `bson:"format" json:"format"`
	Rows        int                `bson:"rows" json:"rows"`
	Environment string             `bson:"environment" json:"environment"`
	User        string             `bson:"user" json:"user"`
	RequestID   string             `bson:"request_id" json:"request_id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
