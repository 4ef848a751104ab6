package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the maintenance lifecycle tag of a report. Any status may move
// to any other one.
type Status string

const (
	StatusPending       Status = "pendente"
	StatusInMaintenance Status = "em_manutencao"
	StatusCompleted     Status = "concluido"
)

// Statuses lists every accepted status value.
var Statuses = []Status{StatusPending, StatusInMaintenance, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInMaintenance, StatusCompleted:
		return true
	}
	return false
}

// Report is a broken-equipment submission stored in the "equipments" collection.
type Report struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Location    string             `json:"location" bson:"location"`
	Laboratory  string             `json:"laboratory" bson:"laboratory"`
	Photo       *string            `json:"photo" bson:"photo"`
	PhotoURL    *string            `json:"photoUrl" bson:"-"`
	Datetime    string             `json:"datetime" bson:"datetime"`
	Status      Status             `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// ReportFilter narrows a listing. The zero value matches every report.
type ReportFilter struct {
	Status Status
}
