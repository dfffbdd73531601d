package rollout

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles rollout state persistence in rollout.db.
// At most one rollout is active at a time; completed and aborted rollouts
// are retained with active = 0 for history.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new rollout repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "rollout").Logger(),
	}
}

// Insert stores a new rollout
func (r *Repository) Insert(ro Rollout) error {
	_, err := r.db.Exec(`
		INSERT INTO rollouts (id, baseline_version, candidate_version, stage,
			baseline_weight, candidate_weight, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ro.ID, ro.BaselineVersion, ro.CandidateVersion, string(ro.Stage),
		ro.Split.BaselineWeight, ro.Split.CandidateWeight, boolToInt(ro.Active),
		ro.CreatedAt.Unix(), ro.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert rollout %s: %w", ro.ID, err)
	}
	return nil
}

// Update persists stage, split, and active flag changes
func (r *Repository) Update(ro Rollout) error {
	result, err := r.db.Exec(`
		UPDATE rollouts
		SET stage = ?, baseline_weight = ?, candidate_weight = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, string(ro.Stage), ro.Split.BaselineWeight, ro.Split.CandidateWeight,
		boolToInt(ro.Active), time.Now().Unix(), ro.ID)
	if err != nil {
		return fmt.Errorf("failed to update rollout %s: %w", ro.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("rollout %s not found", ro.ID)
	}
	return nil
}

// GetActive retrieves the active rollout, nil if none
func (r *Repository) GetActive() (*Rollout, error) {
	row := r.db.QueryRow(`
		SELECT id, baseline_version, candidate_version, stage,
			baseline_weight, candidate_weight, active, created_at, updated_at
		FROM rollouts WHERE active = 1
		ORDER BY created_at DESC LIMIT 1
	`)
	return scanRollout(row)
}

// Get retrieves a rollout by id, nil if absent
func (r *Repository) Get(id string) (*Rollout, error) {
	row := r.db.QueryRow(`
		SELECT id, baseline_version, candidate_version, stage,
			baseline_weight, candidate_weight, active, created_at, updated_at
		FROM rollouts WHERE id = ?
	`, id)
	return scanRollout(row)
}

// List retrieves rollouts newest first
func (r *Repository) List(limit int) ([]Rollout, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(`
		SELECT id, baseline_version, candidate_version, stage,
			baseline_weight, candidate_weight, active, created_at, updated_at
		FROM rollouts ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollouts: %w", err)
	}
	defer rows.Close()

	var rollouts []Rollout
	for rows.Next() {
		var ro Rollout
		var stage string
		var active int
		var createdAt, updatedAt int64
		if err := rows.Scan(&ro.ID, &ro.BaselineVersion, &ro.CandidateVersion, &stage,
			&ro.Split.BaselineWeight, &ro.Split.CandidateWeight, &active, &createdAt, &updatedAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan rollout row")
			continue
		}
		ro.Stage = Stage(stage)
		ro.Active = active == 1
		ro.CreatedAt = time.Unix(createdAt, 0)
		ro.UpdatedAt = time.Unix(updatedAt, 0)
		rollouts = append(rollouts, ro)
	}
	return rollouts, rows.Err()
}

func scanRollout(row *sql.Row) (*Rollout, error) {
	var ro Rollout
	var stage string
	var active int
	var createdAt, updatedAt int64

	err := row.Scan(&ro.ID, &ro.BaselineVersion, &ro.CandidateVersion, &stage,
		&ro.Split.BaselineWeight, &ro.Split.CandidateWeight, &active, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rollout: %w", err)
	}

	ro.Stage = Stage(stage)
	ro.Active = active == 1
	ro.CreatedAt = time.Unix(createdAt, 0)
	ro.UpdatedAt = time.Unix(updatedAt, 0)
	return &ro, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
