package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/repository"
)

var _ repository.WorkItemRepository = (*workItemRepo)(nil)

type workItemRepo struct {
	pool *pgxpool.Pool
}

func NewWorkItemRepo(pool *pgxpool.Pool) *workItemRepo {
	return &workItemRepo{pool: pool}
}

const workItemColumns = `id, title, starts_on, ends_on, processed, created_at`

func (r *workItemRepo) Save(ctx context.Context, tx repository.Tx, item *model.WorkItem) error {
	if item.Title == "" {
		return domain.ErrInvalidArgument
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	const q = `
INSERT INTO work_items (` + workItemColumns + `)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q,
		item.ID, item.Title, item.StartsOn, item.EndsOn, item.Processed, item.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			// 23505: unique violation on (title, starts_on)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *workItemRepo) ListUnprocessed(ctx context.Context, tx repository.Tx, limit int) ([]*model.WorkItem, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + workItemColumns + `
  FROM work_items
 WHERE processed = FALSE
 ORDER BY created_at ASC
 LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, translateQueryErr(err)
	}
	defer rows.Close()

	var out []*model.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *workItemRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string) error {
	// Monotonic: only flips FALSE -> TRUE, never back.
	const q = `UPDATE work_items SET processed = TRUE WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanWorkItem(row pgx.Row) (*model.WorkItem, error) {
	var item model.WorkItem
	err := row.Scan(&item.ID, &item.Title, &item.StartsOn, &item.EndsOn, &item.Processed, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &item, nil
}
