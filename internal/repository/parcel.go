package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parcelflow/internal/domain"
)

// ParcelRepo represents the parcel repository.
type ParcelRepo struct {
	db *pgxpool.Pool
}

// NewParcelRepo creates a new ParcelRepo.
func NewParcelRepo(db *pgxpool.Pool) *ParcelRepo {
	return &ParcelRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *ParcelRepo) WithTx(ctx context.Context, fn func(tx *ParcelTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &ParcelTx{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// ParcelTx represents a parcel repository transaction.
type ParcelTx struct {
	tx pgx.Tx
}

const parcelColumns = `id, code, status, weight_grams, value_cents,
        window_start, window_end, created_at, updated_at, delivered_at`

func scanParcel(row pgx.Row) (*domain.Parcel, error) {
	var p domain.Parcel
	err := row.Scan(&p.ID, &p.Code, &p.Status, &p.WeightGrams, &p.ValueCents,
		&p.WindowStart, &p.WindowEnd, &p.CreatedAt, &p.UpdatedAt, &p.DeliveredAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetForUpdate loads a parcel by id holding a row-level lock for the
// remainder of the transaction. Returns (nil, nil) when the parcel does
// not exist.
func (r *ParcelTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Parcel, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT `+parcelColumns+`
        FROM parcels
        WHERE id = $1
        FOR UPDATE
    `, id)

	p, err := scanParcel(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get parcel %s for update: %w", id, err)
	}
	return p, nil
}

// UpdateStatus persists a new parcel status, stamping delivered_at when given.
func (r *ParcelTx) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ParcelStatus, deliveredAt *time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE parcels
        SET status = $2,
            updated_at = now(),
            delivered_at = COALESCE($3, delivered_at)
        WHERE id = $1
    `, id, string(status), deliveredAt)
	if err != nil {
		return fmt.Errorf("update parcel status %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("parcel %s not found", id)
	}
	return nil
}

// Insert stores a new parcel.
func (r *ParcelRepo) Insert(ctx context.Context, p *domain.Parcel) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO parcels (id, code, status, weight_grams, value_cents,
            window_start, window_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
    `, p.ID, p.Code, string(p.Status), p.WeightGrams, p.ValueCents,
		p.WindowStart, p.WindowEnd)
	if err != nil {
		return fmt.Errorf("insert parcel %q: %w", p.Code, err)
	}
	return nil
}

// Get loads a parcel by id. Returns (nil, nil) when absent.
func (r *ParcelRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Parcel, error) {
	row := r.db.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE id = $1`, id)
	p, err := scanParcel(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get parcel %s: %w", id, err)
	}
	return p, nil
}

// GetByCode loads a parcel by its human-readable code. Returns (nil, nil) when absent.
func (r *ParcelRepo) GetByCode(ctx context.Context, code string) (*domain.Parcel, error) {
	row := r.db.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE code = $1`, code)
	p, err := scanParcel(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get parcel by code %q: %w", code, err)
	}
	return p, nil
}

// GetBulk loads parcels by ids; missing ids are simply absent from the result.
func (r *ParcelRepo) GetBulk(ctx context.Context, ids []uuid.UUID) ([]domain.Parcel, error) {
	rows, err := r.db.Query(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get parcels bulk: %w", err)
	}
	defer rows.Close()

	var out []domain.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan parcel: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
