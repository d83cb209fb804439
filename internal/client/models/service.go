// Package models defines client-side data models used by the clientkeeper CLI.
// They mirror the JSON documents of the API.
package models

import (
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/record"
)

// Service is a record as served by the API, with its decoded device counts
// and the status badge computed by the server.
type Service struct {
	ID             int64               `json:"id"`
	OwnerID        string              `json:"owner_id"`
	Name           string              `json:"name"`
	Username       string              `json:"username"`
	PurchaseDate   record.Date         `json:"purchase_date"`
	ExpirationDate record.Date         `json:"expiration_date"`
	Phone          *string             `json:"phone"`
	Server         *string             `json:"server"`
	PaymentMethod  *string             `json:"payment_method"`
	Device         []string            `json:"device"`
	Amount         float64             `json:"amount"`
	Note           *string             `json:"note"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	DeviceCounts   record.DeviceCounts `json:"device_counts"`
	Badge          record.Badge        `json:"badge"`
}

// ServiceInput is the body of a create request.
type ServiceInput struct {
	Name           string              `json:"name"`
	Username       string              `json:"username"`
	PurchaseDate   record.Date         `json:"purchase_date"`
	ExpirationDate record.Date         `json:"expiration_date"`
	Phone          *string             `json:"phone,omitempty"`
	Server         *string             `json:"server,omitempty"`
	PaymentMethod  *string             `json:"payment_method,omitempty"`
	DeviceCounts   record.DeviceCounts `json:"device_counts"`
	Amount         float64             `json:"amount"`
	Note           *string             `json:"note,omitempty"`
}

// ServicePatch is a partial update; nil fields are left untouched.
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

type Image struct {
	ID        int64     `json:"id"`
	ServiceID int64     `json:"service_id"`
	ImageURL  string    `json:"image_url"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

type DeleteImageResult struct {
	BlobRemoved bool `json:"blob_removed"`
}

type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportReport struct {
	Inserted int        `json:"inserted"`
	Errors   []RowError `json:"errors"`
}
