// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/record"
)

// ServiceRecord is one client subscription.
type ServiceRecord struct {
	ID             int64       `json:"id"`
	OwnerID        string      `json:"owner_id"`
	Name           string      `json:"name"`
	Username       string      `json:"username"`
	PurchaseDate   record.Date `json:"purchase_date"`
	ExpirationDate record.Date `json:"expiration_date"`
	Phone          *string     `json:"phone"`
	Server         *string     `json:"server"`
	PaymentMethod  *string     `json:"payment_method"`
	Device         []string    `json:"device"`
	Amount         float64     `json:"amount"`
	Note           *string     `json:"note"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Expiration returns the expiration date as a time, for the status filters.
func Expiration(r ServiceRecord) time.Time {
	return r.ExpirationDate.Time
}

// ServiceInput carries the fields of a new record. Devices are given as
// counts and encoded on the way to storage.
type ServiceInput struct {
	Name           string              `json:"name"`
	Username       string              `json:"username"`
	PurchaseDate   record.Date         `json:"purchase_date"`
	ExpirationDate record.Date         `json:"expiration_date"`
	Phone          *string             `json:"phone"`
	Server         *string             `json:"server"`
	PaymentMethod  *string             `json:"payment_method"`
	DeviceCounts   record.DeviceCounts `json:"device_counts"`
	Amount         float64             `json:"amount"`
	Note           *string             `json:"note"`
}

// ServicePatch is a partial update. A nil field keeps the stored value.
type ServicePatch struct {
	Name           *string             `json:"name,omitempty"`
	Username       *string             `json:"username,omitempty"`
	PurchaseDate   *record.Date        `json:"purchase_date,omitempty"`
	ExpirationDate *record.Date        `json:"expiration_date,omitempty"`
	Phone          *string             `json:"phone,omitempty"`
	Server         *string             `json:"server,omitempty"`
	PaymentMethod  *string             `json:"payment_method,omitempty"`
	DeviceCounts   record.DeviceCounts `json:"device_counts,omitempty"`
	Amount         *float64            `json:"amount,omitempty"`
	Note           *string             `json:"note,omitempty"`
	OwnerID        *string             `json:"owner_id,omitempty"`
}

// ServiceImage is an attachment of a record. FilePath is the blob key and
// the authoritative pointer; ImageURL is derived from it.
type ServiceImage struct {
	ID        int64     `json:"id"`
	ServiceID int64     `json:"service_id"`
	ImageURL  string    `json:"image_url"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}
