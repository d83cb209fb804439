package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/csvio"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/logging"
	"github.com/dmitrijs2005/clientkeeper/internal/record"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/services"
	"github.com/juju/clock"
)

// View selects which records a listing returns.
type View string

const (
	ViewAll      View = "all"
	ViewActive   View = "active"
	ViewUpcoming View = "upcoming"
)

// ParseView accepts all, active and upcoming. An empty string means all.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "", ViewAll:
		return ViewAll, nil
	case ViewActive, ViewUpcoming:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", common.ErrorValidation, s)
	}
}

// RecordView is a record as returned to clients, with its decoded devices
// and its status badge for the current day.
type RecordView struct {
	models.ServiceRecord
	DeviceCounts record.DeviceCounts `json:"device_counts"`
	Badge        record.Badge        `json:"badge"`
}

// ImportReport summarises a CSV import.
type ImportReport struct {
	Inserted int              `json:"inserted"`
	Errors   []csvio.RowError `json:"errors"`
}

// RecordService implements the role-scoped operations on service records.
// Admins see and modify every record, users only their own.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	logger      logging.Logger
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, logger logging.Logger) *RecordService {
	return &RecordService{db: db, repomanager: m, clock: clk, logger: logger}
}

func (s *RecordService) repo() services.Repository {
	return s.repomanager.Services(s.db)
}

func scopeFilter(p models.Principal) services.Filter {
	if p.IsAdmin() {
		return services.Filter{}
	}
	owner := p.UserID
	return services.Filter{OwnerID: &owner}
}

func (s *RecordService) view(rec models.ServiceRecord) RecordView {
	return RecordView{
		ServiceRecord: rec,
		DeviceCounts:  record.DecodeDevices(rec.Device),
		Badge:         record.BadgeOf(rec.ExpirationDate.Time, s.clock.Now()),
	}
}

// List returns the records visible to p, filtered by v.
func (s *RecordService) List(ctx context.Context, p models.Principal, v View) ([]RecordView, error) {
	recs, err := s.repo().List(ctx, scopeFilter(p))
	if err != nil {
		return nil, fmt.Errorf("error listing services: %w", err)
	}

	today := s.clock.Now()
	switch v {
	case ViewActive:
		recs = record.Active(recs, models.Expiration, today)
	case ViewUpcoming:
		recs = record.Upcoming(recs, models.Expiration, today)
	}

	out := make([]RecordView, 0, len(recs))
	for _, r := range recs {
		out = append(out, s.view(r))
	}
	return out, nil
}

// Get returns one record. Records owned by someone else look missing.
func (s *RecordService) Get(ctx context.Context, p models.Principal, id int64) (*RecordView, error) {
	rec, err := s.repo().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(rec.OwnerID) {
		return nil, common.ErrorNotFound
	}
	v := s.view(*rec)
	return &v, nil
}

// Create stores a new record owned by p.
func (s *RecordService) Create(ctx context.Context, p models.Principal, in models.ServiceInput) (*RecordView, error) {
	rec := models.ServiceRecord{
		OwnerID:        p.UserID,
		Name:           strings.TrimSpace(in.Name),
		Username:       strings.TrimSpace(in.Username),
		PurchaseDate:   in.PurchaseDate,
		ExpirationDate: in.ExpirationDate,
		Phone:          blankToNil(in.Phone),
		Server:         blankToNil(in.Server),
		PaymentMethod:  blankToNil(in.PaymentMethod),
		Device:         record.EncodeDevices(in.DeviceCounts),
		Amount:         in.Amount,
		Note:           blankToNil(in.Note),
	}
	if err := validateRecord(&rec); err != nil {
		return nil, err
	}

	created, err := s.repo().Insert(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("error creating service: %w", err)
	}
	s.logger.Info(ctx, "service created", "id", created.ID, "owner", created.OwnerID)
	v := s.view(*created)
	return &v, nil
}

// loadOwned fetches a record for mutation. A record p may not touch yields
// ErrorForbidden.
func (s *RecordService) loadOwned(ctx context.Context, p models.Principal, id int64) (*models.ServiceRecord, error) {
	rec, err := s.repo().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanAccess(rec.OwnerID) {
		return nil, common.ErrorForbidden
	}
	return rec, nil
}

// Update merges patch into the stored record. Only admins may change the owner.
func (s *RecordService) Update(ctx context.Context, p models.Principal, id int64, patch models.ServicePatch) (*RecordView, error) {
	rec, err := s.loadOwned(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if patch.OwnerID != nil && *patch.OwnerID != rec.OwnerID {
		if !p.IsAdmin() {
			return nil, common.ErrorForbidden
		}
		rec.OwnerID = *patch.OwnerID
	}

	applyPatch(rec, patch)
	if err := validateRecord(rec); err != nil {
		return nil, err
	}

	updated, err := s.repo().Update(ctx, id, rec)
	if err != nil {
		return nil, fmt.Errorf("error updating service: %w", err)
	}
	v := s.view(*updated)
	return &v, nil
}

// UpdateNote replaces the note of one record. An empty note clears it.
func (s *RecordService) UpdateNote(ctx context.Context, p models.Principal, id int64, note string) error {
	if _, err := s.loadOwned(ctx, p, id); err != nil {
		return err
	}
	if err := s.repo().UpdateNote(ctx, id, blankToNil(&note)); err != nil {
		return fmt.Errorf("error updating note: %w", err)
	}
	return nil
}

func (s *RecordService) Delete(ctx context.Context, p models.Principal, id int64) error {
	if _, err := s.loadOwned(ctx, p, id); err != nil {
		return err
	}
	if err := s.repo().Delete(ctx, id); err != nil {
		return fmt.Errorf("error deleting service: %w", err)
	}
	s.logger.Info(ctx, "service deleted", "id", id, "by", p.UserID)
	return nil
}

// Import parses a CSV file and inserts its valid rows in one transaction.
// Rows without an owner column are assigned to the importing admin.
func (s *RecordService) Import(ctx context.Context, p models.Principal, r io.Reader) (*ImportReport, error) {
	if !p.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	res, err := csvio.ParseImport(r, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	report := &ImportReport{Errors: res.Errors}
	if report.Errors == nil {
		report.Errors = []csvio.RowError{}
	}
	if len(res.Records) == 0 {
		return report, nil
	}

	var inserted int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Services(tx).InsertBatch(ctx, res.Records)
		if err != nil {
			return fmt.Errorf("error inserting services: %w", err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Inserted = int(inserted)
	s.logger.Info(ctx, "services imported", "inserted", report.Inserted, "rejected", len(report.Errors))
	return report, nil
}

// Export renders the records visible to p as CSV and names the file after
// the current day.
func (s *RecordService) Export(ctx context.Context, p models.Principal) (string, []byte, error) {
	recs, err := s.repo().List(ctx, scopeFilter(p))
	if err != nil {
		return "", nil, fmt.Errorf("error listing services: %w", err)
	}
	if len(recs) == 0 {
		return "", nil, common.ErrNothingToExport
	}

	var buf bytes.Buffer
	if err := csvio.WriteExport(&buf, recs); err != nil {
		return "", nil, fmt.Errorf("error writing csv: %w", err)
	}
	return csvio.ExportFileName(s.clock.Now()), buf.Bytes(), nil
}

func applyPatch(rec *models.ServiceRecord, patch models.ServicePatch) {
	if patch.Name != nil {
		rec.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Username != nil {
		rec.Username = strings.TrimSpace(*patch.Username)
	}
	if patch.PurchaseDate != nil {
		rec.PurchaseDate = *patch.PurchaseDate
	}
	if patch.ExpirationDate != nil {
		rec.ExpirationDate = *patch.ExpirationDate
	}
	if patch.Phone != nil {
		rec.Phone = blankToNil(patch.Phone)
	}
	if patch.Server != nil {
		rec.Server = blankToNil(patch.Server)
	}
	if patch.PaymentMethod != nil {
		rec.PaymentMethod = blankToNil(patch.PaymentMethod)
	}
	if patch.DeviceCounts != nil {
		rec.Device = record.EncodeDevices(patch.DeviceCounts)
	}
	if patch.Amount != nil {
		rec.Amount = *patch.Amount
	}
	if patch.Note != nil {
		rec.Note = blankToNil(patch.Note)
	}
}

var errMissingField = errors.New("missing required field")

func validateRecord(rec *models.ServiceRecord) error {
	switch {
	case rec.Name == "":
		return fmt.Errorf("%w: %w name", common.ErrorValidation, errMissingField)
	case rec.Username == "":
		return fmt.Errorf("%w: %w username", common.ErrorValidation, errMissingField)
	case rec.PurchaseDate.IsZero():
		return fmt.Errorf("%w: %w purchase_date", common.ErrorValidation, errMissingField)
	case rec.ExpirationDate.IsZero():
		return fmt.Errorf("%w: %w expiration_date", common.ErrorValidation, errMissingField)
	case math.IsNaN(rec.Amount) || math.IsInf(rec.Amount, 0) || rec.Amount < 0:
		return fmt.Errorf("%w: amount must be a non-negative number", common.ErrorValidation)
	}
	if rec.Device == nil {
		rec.Device = []string{}
	}
	return nil
}

// blankToNil maps absent and whitespace-only values to NULL.
func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}
