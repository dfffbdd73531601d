package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/modelgate/internal/modules/gate"
	"github.com/aristath/modelgate/internal/modules/rollout"
)

// Repository writes and reads the audit ledger in audit.db.
// Writes are append-only; there is deliberately no update or delete.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new audit repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "audit").Logger(),
	}
}

// RecordDecision appends a gate decision entry
func (r *Repository) RecordDecision(baseline, candidate string, decision gate.PromotionDecision) error {
	passed := decision.Passed
	precisionOK := decision.PrecisionOK
	improvement := decision.RecallImprovement
	return r.insert(Entry{
		ID:                uuid.New().String(),
		Kind:              KindGateDecision,
		BaselineVersion:   baseline,
		CandidateVersion:  candidate,
		Passed:            &passed,
		RecallImprovement: &improvement,
		PrecisionOK:       &precisionOK,
		Reason:            decision.Reason,
		CreatedAt:         time.Now(),
	})
}

// RecordTransition appends a stage transition entry attributed to the
// rollout it belongs to. Transitions into the rolled-back stage are
// recorded as rollbacks.
func (r *Repository) RecordTransition(ro rollout.Rollout, from, to rollout.Stage, reason string) error {
	kind := KindStageTransition
	if to == rollout.StageRolledBack {
		kind = KindRollback
	}
	return r.insert(Entry{
		ID:               uuid.New().String(),
		Kind:             kind,
		RolloutID:        ro.ID,
		BaselineVersion:  ro.BaselineVersion,
		CandidateVersion: ro.CandidateVersion,
		Reason:           reason,
		StageFrom:        string(from),
		StageTo:          string(to),
		CreatedAt:        time.Now(),
	})
}

// RecordAlert appends an alert entry (observed metrics breached thresholds)
func (r *Repository) RecordAlert(model, reason string) error {
	return r.insert(Entry{
		ID:               uuid.New().String(),
		Kind:             KindAlert,
		CandidateVersion: model,
		Reason:           reason,
		CreatedAt:        time.Now(),
	})
}

func (r *Repository) insert(e Entry) error {
	_, err := r.db.Exec(`
		INSERT INTO audit_entries (id, kind, rollout_id, baseline_version, candidate_version,
			passed, recall_improvement, precision_ok, reason, stage_from, stage_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Kind), e.RolloutID, e.BaselineVersion, e.CandidateVersion,
		nullBool(e.Passed), nullFloat(e.RecallImprovement), nullBool(e.PrecisionOK),
		e.Reason, e.StageFrom, e.StageTo, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// List retrieves audit entries newest first, optionally filtered by kind
func (r *Repository) List(kind Kind, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, rollout_id, baseline_version, candidate_version,
			passed, recall_improvement, precision_ok, reason, stage_from, stage_to, created_at
		FROM audit_entries`
	args := []interface{}{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kindStr string
		var passed, precisionOK sql.NullBool
		var improvement sql.NullFloat64
		var createdAt int64

		if err := rows.Scan(&e.ID, &kindStr, &e.RolloutID, &e.BaselineVersion, &e.CandidateVersion,
			&passed, &improvement, &precisionOK, &e.Reason, &e.StageFrom, &e.StageTo, &createdAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan audit entry")
			continue
		}

		e.Kind = Kind(kindStr)
		if passed.Valid {
			v := passed.Bool
			e.Passed = &v
		}
		if improvement.Valid {
			v := improvement.Float64
			e.RecallImprovement = &v
		}
		if precisionOK.Valid {
			v := precisionOK.Bool
			e.PrecisionOK = &v
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns total entries, optionally filtered by kind
func (r *Repository) Count(kind Kind) (int, error) {
	query := "SELECT COUNT(*) FROM audit_entries"
	args := []interface{}{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

func nullBool(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
