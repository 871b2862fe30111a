package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quote statuses. The workshop moves a quote Open -> Approved/Rejected ->
// Completed, but transitions are not enforced server-side.
const (
	StatusOpen      = "Open"
	StatusApproved  = "Approved"
	StatusRejected  = "Rejected"
	StatusCompleted = "Completed"
)

// KnownStatus reports whether s is one of the accepted status values.
func KnownStatus(s string) bool {
	switch s {
	case StatusOpen, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// ImageRef is one attachment entry: where the binary lives on the media
// host and the host identifier used to delete it later.
type ImageRef struct {
	URL        string `json:"url"`
	ExternalID string `json:"externalId"`
}

// Quote is a single service estimate (orçamento) for a client vehicle.
// Totals are caller-supplied; the server does not recompute GrandTotal
// from the sub-totals.
type Quote struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber int64  `gorm:"uniqueIndex;not null" json:"orderNumber"`
	Client      string `gorm:"not null;index" json:"client"`
	Phone       string `json:"phone"`
	Vehicle     string `json:"vehicle"`
	Plate       string `json:"plate"`
	Type        string `gorm:"not null;index" json:"type"` // ex: "motor", "cabecote"

	Parts    datatypes.JSONSlice[string] `json:"parts"`
	Services datatypes.JSONSlice[string] `json:"services"`

	PartsTotal    float64 `json:"partsTotal"`
	ServicesTotal float64 `json:"servicesTotal"`
	LaborTotal    float64 `json:"laborTotal"`
	GrandTotal    float64 `json:"grandTotal"`

	PaymentMethod string `json:"paymentMethod"`
	Warranty      string `json:"warranty"`
	Notes         string `json:"notes"`

	Status string `gorm:"not null;default:'Open'" json:"status"`

	Images datatypes.JSONType[[]ImageRef] `json:"images"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
