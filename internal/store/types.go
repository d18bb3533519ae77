package store

import (
	"context"
	"errors"
	"time"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN           string
	Type          DatabaseType
	MigrationsDir string
	// MaxAppendAttempts bounds how many times RunInTx retries a
	// transaction that lost a version race.
	MaxAppendAttempts int
}

const DefaultMaxAppendAttempts = 5

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate")
	ErrVersionConflict = errors.New("version conflict")
	ErrCommit          = errors.New("commit failed")
)

// ReviewFilter narrows ListReviews. Empty fields are ignored.
type ReviewFilter struct {
	UserCourseGradeID string
	GradeTypeID       string
	StudentID         string
	CourseID          string
	UserID            string
}

type GradeStore interface {
	CreateStructure(ctx context.Context, s *models.GradeStructure) error
	GetStructure(ctx context.Context, id string) (*models.GradeStructure, error)
	GetStructureByCourse(ctx context.Context, courseID string) (*models.GradeStructure, error)
	UpdateStructure(ctx context.Context, s *models.GradeStructure) error
	DeleteStructure(ctx context.Context, id string) error

	CreateType(ctx context.Context, t *models.GradeType) error
	GetType(ctx context.Context, id string) (*models.GradeType, error)
	ListTypes(ctx context.Context, structureID string) ([]models.GradeType, error)
	UpdateType(ctx context.Context, t *models.GradeType) error
	DeleteType(ctx context.Context, id string) error

	CreateGrade(ctx context.Context, g *models.UserCourseGrade) error
	GetGrade(ctx context.Context, id string) (*models.UserCourseGrade, error)
	FindGrade(ctx context.Context, gradeTypeID, studentID string) (*models.UserCourseGrade, error)
	UpdateGrade(ctx context.Context, g *models.UserCourseGrade) error
	DeleteGrade(ctx context.Context, id string) error
	ListGradesByType(ctx context.Context, gradeTypeID string) ([]models.UserCourseGrade, error)
	ListGradesByStructure(ctx context.Context, structureID string) ([]models.UserCourseGrade, error)
}

type ReviewStore interface {
	CreateReview(ctx context.Context, r *models.GradeReview) error
	GetReview(ctx context.Context, id string) (*models.GradeReview, error)
	// UpdateReview edits topic, description and expected grade of an open
	// review. A closed or missing review is ErrNotFound.
	UpdateReview(ctx context.Context, r *models.GradeReview) error
	SetReviewStatus(ctx context.Context, id string, status models.ReviewStatus) error
	DeleteReview(ctx context.Context, id string) error
	ListReviews(ctx context.Context, f ReviewFilter) ([]models.GradeReview, error)
}

// EventStore is the append-only log of grade review results.
type EventStore interface {
	// AppendEvents stores events as versions expected+1.. in submission
	// order. It fails with ErrVersionConflict unless expected is the last
	// persisted version of the review.
	AppendEvents(ctx context.Context, reviewID string, expected int, events []models.GradeReviewResult) ([]models.GradeReviewResult, error)
	LoadEvents(ctx context.Context, reviewID string) ([]models.GradeReviewResult, error)
}

// Tx is the part of the store usable inside a transaction.
type Tx interface {
	GradeStore
	ReviewStore
	EventStore
}

type Store interface {
	Tx

	// RunInTx runs fn in a single transaction bounded by timeout. fn is
	// retried while it fails with ErrVersionConflict.
	RunInTx(ctx context.Context, timeout time.Duration, fn func(Tx) error) error
	Close() error
	ApplyMigrations(dir string) error
}
