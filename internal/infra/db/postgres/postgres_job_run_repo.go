package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"event-keyword-monitor/internal/domain"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/repository"
)

var _ repository.JobRunRepository = (*jobRunRepo)(nil)

// consecutiveScanLimit bounds the backward scan so a long failure
// history cannot make the check expensive.
const consecutiveScanLimit = 10

type jobRunRepo struct {
	pool *pgxpool.Pool
}

func NewJobRunRepo(pool *pgxpool.Pool) *jobRunRepo {
	return &jobRunRepo{pool: pool}
}

const jobRunColumns = `id, job_name, status, started_at, completed_at, duration_seconds, items_scanned, items_new, result_payload, error_message, retry_count, created_at`

func (r *jobRunRepo) Create(ctx context.Context, tx repository.Tx, run *model.JobRun) error {
	if run.ID == "" {
		run.ID = ulid.Make().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	payload, err := marshalPayload(run.ResultPayload)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO job_runs (` + jobRunColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12);`

	_, err = execSQL(ctx, r.pool, tx, q,
		run.ID, string(run.Job), string(run.Status), run.StartedAt, run.CompletedAt,
		run.DurationSeconds, run.ItemsScanned, run.ItemsNew, payload,
		run.ErrorMessage, run.RetryCount, run.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

// Update applies only the non-nil patch fields and re-reads the row, so
// the caller always ends up with the persisted state.
func (r *jobRunRepo) Update(ctx context.Context, tx repository.Tx, id string, patch model.JobRunPatch) (*model.JobRun, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	var payload []byte
	if patch.ResultPayload != nil {
		b, err := marshalPayload(patch.ResultPayload)
		if err != nil {
			return nil, domain.ErrInvalidArgument
		}
		payload = b
	}

	const q = `
UPDATE job_runs SET
  status           = COALESCE($2, status),
  completed_at     = COALESCE($3, completed_at),
  duration_seconds = COALESCE($4, duration_seconds),
  items_scanned    = COALESCE($5, items_scanned),
  items_new        = COALESCE($6, items_new),
  result_payload   = COALESCE($7, result_payload),
  error_message    = COALESCE($8, error_message),
  retry_count      = COALESCE($9, retry_count)
WHERE id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, id,
		status, patch.CompletedAt, patch.DurationSeconds,
		patch.ItemsScanned, patch.ItemsNew, payload,
		patch.ErrorMessage, patch.RetryCount)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, tx, id)
}

func (r *jobRunRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.JobRun, error) {
	const q = `SELECT ` + jobRunColumns + ` FROM job_runs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJobRun(row)
}

func (r *jobRunRepo) Latest(ctx context.Context, tx repository.Tx, job model.JobKind) (*model.JobRun, error) {
	const q = `
SELECT ` + jobRunColumns + `
  FROM job_runs
 WHERE job_name = $1
 ORDER BY created_at DESC, id DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, string(job))
	if err != nil {
		return nil, err
	}
	return scanJobRun(row)
}

func (r *jobRunRepo) List(ctx context.Context, tx repository.Tx, job model.JobKind, filter repository.JobRunListFilter) ([]*model.JobRun, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	var (
		rows pgx.Rows
		err  error
	)
	if filter.Status != "" {
		const q = `
SELECT ` + jobRunColumns + `
  FROM job_runs
 WHERE job_name = $1 AND status = $2
 ORDER BY created_at DESC, id DESC
 OFFSET $3 LIMIT $4;`
		rows, err = queryRows(ctx, r.pool, tx, q, string(job), string(filter.Status), filter.Offset, limit)
	} else {
		const q = `
SELECT ` + jobRunColumns + `
  FROM job_runs
 WHERE job_name = $1
 ORDER BY created_at DESC, id DESC
 OFFSET $2 LIMIT $3;`
		rows, err = queryRows(ctx, r.pool, tx, q, string(job), filter.Offset, limit)
	}
	if err != nil {
		return nil, translateQueryErr(err)
	}
	defer rows.Close()

	var out []*model.JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *jobRunRepo) ConsecutiveFailures(ctx context.Context, tx repository.Tx, job model.JobKind) (int, error) {
	const q = `
SELECT status
  FROM job_runs
 WHERE job_name = $1
 ORDER BY created_at DESC, id DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(job), consecutiveScanLimit)
	if err != nil {
		return 0, translateQueryErr(err)
	}
	defer rows.Close()

	// Count from the top until the first non-failed status. A paused or
	// resumed marker therefore resets the apparent count; the breaker
	// relies on the resumed marker to re-arm after a cooldown.
	count := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, domain.ErrReadDatabaseRow
		}
		if model.JobRunStatus(status) != model.JobRunFailed {
			break
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return count, nil
}

func (r *jobRunRepo) IsPaused(ctx context.Context, tx repository.Tx, job model.JobKind) (bool, error) {
	latest, err := r.Latest(ctx, tx, job)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return latest.Status == model.JobRunPaused, nil
}

func (r *jobRunRepo) Cleanup(ctx context.Context, tx repository.Tx, job model.JobKind, before time.Time) (int64, error) {
	const q = `DELETE FROM job_runs WHERE job_name = $1 AND created_at < $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, string(job), before)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return 0, err
		default:
			return 0, domain.ErrOperationFailed
		}
	}
	return tag.RowsAffected(), nil
}

func (r *jobRunRepo) Stats(ctx context.Context, tx repository.Tx, job model.JobKind, window time.Duration) (*model.JobStats, error) {
	since := time.Now().Add(-window)
	const q = `
SELECT status, duration_seconds, error_message
  FROM job_runs
 WHERE job_name = $1
   AND created_at >= $2
   AND status IN ('success','failed')
 ORDER BY created_at DESC, id DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(job), since)
	if err != nil {
		return nil, translateQueryErr(err)
	}
	defer rows.Close()

	stats := &model.JobStats{}
	durSum, durCount := 0, 0
	for rows.Next() {
		var (
			status   string
			duration *int
			errMsg   *string
		)
		if err := rows.Scan(&status, &duration, &errMsg); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		stats.Total++
		switch model.JobRunStatus(status) {
		case model.JobRunSuccess:
			stats.SuccessCount++
			if duration != nil {
				durSum += *duration
				durCount++
			}
		case model.JobRunFailed:
			stats.FailureCount++
			if errMsg != nil && *errMsg != "" && len(stats.RecentFailures) < 3 {
				stats.RecentFailures = append(stats.RecentFailures, *errMsg)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.Total) * 100
	}
	if durCount > 0 {
		stats.AvgDurationSeconds = float64(durSum) / float64(durCount)
	}
	return stats, nil
}

func (r *jobRunRepo) SweepOrphanedRunning(ctx context.Context, tx repository.Tx, reason string) (int64, error) {
	const q = `
UPDATE job_runs
   SET status = 'failed', completed_at = NOW(), error_message = $1
 WHERE status = 'running';`
	tag, err := execSQL(ctx, r.pool, tx, q, reason)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return 0, err
		default:
			return 0, domain.ErrOperationFailed
		}
	}
	return tag.RowsAffected(), nil
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

func translateQueryErr(err error) error {
	switch err {
	case pgx.ErrNoRows:
		return domain.ErrNotFound
	case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
		return err
	default:
		return domain.ErrOperationFailed
	}
}

func scanJobRun(row pgx.Row) (*model.JobRun, error) {
	var (
		run     model.JobRun
		job     string
		status  string
		payload []byte
	)
	err := row.Scan(
		&run.ID, &job, &status, &run.StartedAt, &run.CompletedAt,
		&run.DurationSeconds, &run.ItemsScanned, &run.ItemsNew, &payload,
		&run.ErrorMessage, &run.RetryCount, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	run.Job = model.JobKind(job)
	run.Status = model.JobRunStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &run.ResultPayload); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &run, nil
}
