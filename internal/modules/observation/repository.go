package observation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles outcome persistence in observation.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new observation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "observation").Logger(),
	}
}

// InsertOutcome stores a prediction outcome, resolved or not
func (r *Repository) InsertOutcome(o Outcome) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO outcomes (model, request_id, predicted, actual, observed_at)
		VALUES (?, ?, ?, ?, ?)
	`, o.Model, o.RequestID, o.Predicted, nullInt(o.Actual), o.ObservedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to insert outcome: %w", err)
	}
	return result.LastInsertId()
}

// ResolveOutcome attaches the true label to pending outcomes for a request.
// Returns the number of rows resolved (0 when the request is unknown or
// already resolved).
func (r *Repository) ResolveOutcome(requestID string, actual int) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE outcomes SET actual = ? WHERE request_id = ? AND actual IS NULL
	`, actual, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve outcome for request %s: %w", requestID, err)
	}
	return result.RowsAffected()
}

// WindowCounts aggregates resolved outcomes for a model since the cutoff
func (r *Repository) WindowCounts(model string, since time.Time) (ConfusionCounts, error) {
	var c ConfusionCounts
	err := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN predicted = 1 AND actual = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN predicted = 1 AND actual = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN predicted = 0 AND actual = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN predicted = 0 AND actual = 0 THEN 1 ELSE 0 END), 0)
		FROM outcomes
		WHERE model = ? AND actual IS NOT NULL AND observed_at >= ?
	`, model, since.Unix()).Scan(&c.TruePositives, &c.FalsePositives, &c.FalseNegatives, &c.TrueNegatives)
	if err != nil {
		return c, fmt.Errorf("failed to aggregate window counts for %s: %w", model, err)
	}
	return c, nil
}

// BucketPrecisions computes per-bucket precision for resolved outcomes in
// the window, oldest bucket first. Buckets with no positive predictions
// are skipped.
func (r *Repository) BucketPrecisions(model string, since time.Time, bucket time.Duration) ([]float64, error) {
	bucketSecs := int64(bucket.Seconds())
	if bucketSecs <= 0 {
		return nil, fmt.Errorf("bucket must be positive")
	}

	rows, err := r.db.Query(`
		SELECT
			observed_at / ? AS bucket,
			SUM(CASE WHEN predicted = 1 AND actual = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN predicted = 1 AND actual = 0 THEN 1 ELSE 0 END)
		FROM outcomes
		WHERE model = ? AND actual IS NOT NULL AND observed_at >= ?
		GROUP BY bucket ORDER BY bucket ASC
	`, bucketSecs, model, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to bucket outcomes for %s: %w", model, err)
	}
	defer rows.Close()

	var precisions []float64
	for rows.Next() {
		var bucketID int64
		var tp, fp int
		if err := rows.Scan(&bucketID, &tp, &fp); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan precision bucket")
			continue
		}
		if tp+fp == 0 {
			continue
		}
		precisions = append(precisions, float64(tp)/float64(tp+fp))
	}
	return precisions, rows.Err()
}

// PendingCount returns outcomes awaiting ground truth for a model
func (r *Repository) PendingCount(model string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM outcomes WHERE model = ? AND actual IS NULL
	`, model).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending outcomes for %s: %w", model, err)
	}
	return count, nil
}

// PurgeOlderThan deletes outcomes observed before the cutoff
func (r *Repository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM outcomes WHERE observed_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge old outcomes: %w", err)
	}
	return result.RowsAffected()
}

func nullInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
