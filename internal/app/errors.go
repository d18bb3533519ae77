package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/board"
	"github.com/shrimpsizemoose/gradebook/internal/export"
	"github.com/shrimpsizemoose/gradebook/internal/review"
	"github.com/shrimpsizemoose/gradebook/internal/scoring"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// translate maps lower layer failures onto caller facing kinds. what names
// the entity or operation, e.g. "grade review r1".
func translate(err error, what string, args ...any) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	subject := fmt.Sprintf(what, args...)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(err, apperr.KindNotFound, "%s not found", subject)
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, scoring.ErrDuplicateLabel):
		return apperr.Wrap(err, apperr.KindConflict, "%s already exists", subject)
	case errors.Is(err, store.ErrVersionConflict):
		return apperr.Wrap(err, apperr.KindConflict, "%s was changed concurrently, try again", subject)
	case errors.Is(err, review.ErrNoPriorResult):
		return apperr.Wrap(err, apperr.KindInvalidState, "no prior result")
	case errors.Is(err, board.ErrUnsupportedTemplate):
		return apperr.Wrap(err, apperr.KindInvalidState, "unsupported import template")
	case errors.Is(err, review.ErrInvalidPoint),
		errors.Is(err, board.ErrInvalidGrade),
		errors.Is(err, export.ErrInvalidFile),
		errors.Is(err, scoring.ErrInvalidParent),
		errors.Is(err, scoring.ErrUnknownParent):
		return apperr.Wrap(err, apperr.KindValidation, "%s", err.Error())
	case errors.Is(err, store.ErrCommit),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperr.Wrap(err, apperr.KindPersistence, "%s could not be saved", subject)
	default:
		return apperr.Wrap(err, apperr.KindPersistence, "%s failed", subject)
	}
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Wrap(err, apperr.KindValidation, "%s", err.Error())
}
