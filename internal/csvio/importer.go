// Package csvio converts service records to and from the CSV interchange
// format used for bulk import and export.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/clientkeeper/internal/record"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

const (
	ReasonIncomplete = "incomplete data"
	ReasonFormat     = "format error"
)

var ErrNoHeader = errors.New("csv header row is missing")

// RowError reports a skipped row. Row is the index of the data record plus
// 2, so the first data row after the header is row 2. Empty lines are not
// records and are not counted, while rows of empty fields are.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ImportResult holds the rows that passed validation, ready for insertion,
// and the rows that were skipped.
type ImportResult struct {
	Records []models.ServiceRecord
	Errors  []RowError
}

var requiredColumns = []string{"name", "username", "purchase_date", "expiration_date", "amount"}

type headerIndex map[string]int

func makeHeaderIndex(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func (h headerIndex) get(row []string, column string) string {
	pos, ok := h[column]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

// ParseImport reads a CSV with a header row and validates each data row.
// Rows missing a required field, or carrying an unparseable date or amount,
// are skipped and reported; the remaining rows are returned. Rows without
// an owner_id are assigned to defaultOwner.
func ParseImport(r io.Reader, defaultOwner string) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportResult{}, ErrNoHeader
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv header: %w", err)
	}
	idx := makeHeaderIndex(header)

	var result ImportResult
	for i := 0; ; i++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line := i + 2
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: line, Reason: ReasonFormat + ": " + err.Error()})
			continue
		}
		if isBlankRow(row) {
			continue
		}

		rec, rowErr := parseRow(idx, row, defaultOwner)
		if rowErr != "" {
			result.Errors = append(result.Errors, RowError{Row: line, Reason: rowErr})
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func parseRow(idx headerIndex, row []string, defaultOwner string) (models.ServiceRecord, string) {
	for _, col := range requiredColumns {
		if idx.get(row, col) == "" {
			return models.ServiceRecord{}, ReasonIncomplete
		}
	}

	purchase, err := record.ParseDate(idx.get(row, "purchase_date"))
	if err != nil {
		return models.ServiceRecord{}, ReasonFormat + ": purchase_date: " + err.Error()
	}
	expiration, err := record.ParseDate(idx.get(row, "expiration_date"))
	if err != nil {
		return models.ServiceRecord{}, ReasonFormat + ": expiration_date: " + err.Error()
	}
	amount, err := strconv.ParseFloat(idx.get(row, "amount"), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return models.ServiceRecord{}, fmt.Sprintf("%s: amount: invalid value %q", ReasonFormat, idx.get(row, "amount"))
	}

	owner := idx.get(row, "owner_id")
	if owner == "" {
		owner = defaultOwner
	}

	return models.ServiceRecord{
		OwnerID:        owner,
		Name:           idx.get(row, "name"),
		Username:       idx.get(row, "username"),
		PurchaseDate:   purchase,
		ExpirationDate: expiration,
		Phone:          optional(idx.get(row, "phone")),
		Server:         optional(idx.get(row, "server")),
		PaymentMethod:  optional(idx.get(row, "payment_method")),
		Device:         splitDevices(idx.get(row, "device")),
		Amount:         amount,
		Note:           optional(idx.get(row, "note")),
	}, ""
}

func splitDevices(cell string) []string {
	devices := []string{}
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			devices = append(devices, part)
		}
	}
	return devices
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
