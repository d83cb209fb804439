package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	psql     = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	columns  = []string{"id", "owner_id", "name", "username", "purchase_date", "expiration_date", "phone", "server", "payment_method", "device", "amount", "note", "created_at", "updated_at"}
	returned = "RETURNING id, owner_id, name, username, purchase_date, expiration_date, phone, server, payment_method, device, amount, note, created_at, updated_at"
)

// deviceArray sends a device list as a text[] literal.
type deviceArray []string

func (a deviceArray) Value() (driver.Value, error) {
	if a == nil {
		a = deviceArray{}
	}
	buf, err := pgtype.NewMap().Encode(pgtype.TextArrayOID, pgtype.TextFormatCode, []string(a), nil)
	if err != nil {
		return nil, fmt.Errorf("encode device array: %w", err)
	}
	return string(buf), nil
}

// PostgresRepository stores service records over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row in columns order. pgtype.Map is not safe for
// concurrent use, so callers pass a map owned by the current query.
func scanRecord(m *pgtype.Map, s rowScanner) (*models.ServiceRecord, error) {
	var rec models.ServiceRecord
	err := s.Scan(
		&rec.ID, &rec.OwnerID, &rec.Name, &rec.Username, &rec.PurchaseDate, &rec.ExpirationDate,
		&rec.Phone, &rec.Server, &rec.PaymentMethod, m.SQLScanner(&rec.Device),
		&rec.Amount, &rec.Note, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if rec.Device == nil {
		rec.Device = []string{}
	}
	return &rec, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]models.ServiceRecord, error) {
	q := psql.Select(columns...).From("services").OrderBy("id DESC")
	if f.OwnerID != nil {
		q = q.Where(sq.Eq{"owner_id": *f.OwnerID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select services: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	result := []models.ServiceRecord{}
	for rows.Next() {
		rec, err := scanRecord(m, rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.ServiceRecord, error) {
	query, args, err := psql.Select(columns...).From("services").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rec, err := scanRecord(pgtype.NewMap(), r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func insertColumns() []string {
	return []string{"owner_id", "name", "username", "purchase_date", "expiration_date", "phone", "server", "payment_method", "device", "amount", "note"}
}

func insertValues(rec *models.ServiceRecord) []any {
	return []any{
		rec.OwnerID, rec.Name, rec.Username, rec.PurchaseDate, rec.ExpirationDate,
		rec.Phone, rec.Server, rec.PaymentMethod, deviceArray(rec.Device), rec.Amount, rec.Note,
	}
}

// Insert stores a new record and returns it as persisted.
func (r *PostgresRepository) Insert(ctx context.Context, rec *models.ServiceRecord) (*models.ServiceRecord, error) {
	query, args, err := psql.Insert("services").
		Columns(insertColumns()...).
		Values(insertValues(rec)...).
		Suffix(returned).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	created, err := scanRecord(pgtype.NewMap(), r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) InsertBatch(ctx context.Context, recs []models.ServiceRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	q := psql.Insert("services").Columns(insertColumns()...)
	for i := range recs {
		q = q.Values(insertValues(&recs[i])...)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

// Update overwrites every mutable column of record id with rec and returns
// the stored row.
func (r *PostgresRepository) Update(ctx context.Context, id int64, rec *models.ServiceRecord) (*models.ServiceRecord, error) {
	query, args, err := psql.Update("services").
		SetMap(map[string]any{
			"owner_id":        rec.OwnerID,
			"name":            rec.Name,
			"username":        rec.Username,
			"purchase_date":   rec.PurchaseDate,
			"expiration_date": rec.ExpirationDate,
			"phone":           rec.Phone,
			"server":          rec.Server,
			"payment_method":  rec.PaymentMethod,
			"device":          deviceArray(rec.Device),
			"amount":          rec.Amount,
			"note":            rec.Note,
			"updated_at":      sq.Expr("now()"),
		}).
		Where(sq.Eq{"id": id}).
		Suffix(returned).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	updated, err := scanRecord(pgtype.NewMap(), r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return updated, nil
}

func (r *PostgresRepository) UpdateNote(ctx context.Context, id int64, note *string) error {
	query := `
		UPDATE services SET note = $1, updated_at = now()
		WHERE id = $2
	`
	res, err := r.db.ExecContext(ctx, query, note, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `
		DELETE FROM services
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
