package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// AppendEvents inserts the batch after version expected in one
// transaction, its own one when called outside RunInTx. A log that moved
// past expected, or a racing insert of the same version, is
// ErrVersionConflict; the caller reloads and decides again.
func (s *BaseStore) AppendEvents(ctx context.Context, reviewID string, expected int, events []models.GradeReviewResult) ([]models.GradeReviewResult, error) {
	if len(events) == 0 {
		return nil, nil
	}

	if s.tx == nil {
		var stored []models.GradeReviewResult
		err := s.runOnce(ctx, 0, func(tx Tx) error {
			var err error
			stored, err = tx.AppendEvents(ctx, reviewID, expected, events)
			return err
		})
		return stored, err
	}

	var last int
	err := sqlx.GetContext(ctx, s.tx, &last, s.q(`
		SELECT COALESCE(MAX(version), 0)
		FROM grade_review_results
		WHERE grade_review_id = ?
	`), reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to read last version: %w", err)
	}
	if last != expected {
		return nil, fmt.Errorf("review %s is at version %d, expected %d: %w", reviewID, last, expected, ErrVersionConflict)
	}

	stored := make([]models.GradeReviewResult, len(events))
	for i, e := range events {
		e.ID = newID()
		e.GradeReviewID = reviewID
		e.Version = expected + i + 1
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now()
		}

		_, err := sqlx.NamedExecContext(ctx, s.tx, `
			INSERT INTO grade_review_results (id, grade_review_id, version, event, point,
				teacher_id, feedback, created_at)
			VALUES (:id, :grade_review_id, :version, :event, :point,
				:teacher_id, :feedback, :created_at)
		`, e)
		if s.unique(err) {
			return nil, fmt.Errorf("review %s version %d: %w", reviewID, e.Version, ErrVersionConflict)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to append event: %w", err)
		}
		stored[i] = e
	}

	return stored, nil
}

func (s *BaseStore) LoadEvents(ctx context.Context, reviewID string) ([]models.GradeReviewResult, error) {
	events := []models.GradeReviewResult{}
	err := sqlx.SelectContext(ctx, s.ext(), &events, s.q(`
		SELECT id, grade_review_id, version, event, point, teacher_id, feedback, created_at
		FROM grade_review_results
		WHERE grade_review_id = ?
		ORDER BY version
	`), reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}
