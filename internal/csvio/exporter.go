package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/clientkeeper/internal/record"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

// ExportHeader is the column order of exported files.
var ExportHeader = []string{
	"id", "name", "username", "purchase_date", "expiration_date", "phone", "server",
	"device", "payment_method", "amount", "note", "owner_id", "created_at",
}

// WriteExport writes records in the given order. Devices are written as the
// stored entries joined by ", ".
func WriteExport(w io.Writer, records []models.ServiceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Name,
			rec.Username,
			rec.PurchaseDate.String(),
			rec.ExpirationDate.String(),
			deref(rec.Phone),
			deref(rec.Server),
			strings.Join(rec.Device, ", "),
			deref(rec.PaymentMethod),
			strconv.FormatFloat(rec.Amount, 'f', -1, 64),
			deref(rec.Note),
			rec.OwnerID,
			formatCreated(rec.CreatedAt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFileName names an export made on the given day.
func ExportFileName(today time.Time) string {
	return "servicios_exportados_" + record.FormatDate(today.UTC()) + ".csv"
}

func formatCreated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
