package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type GradeStatus string

const (
	GradeStatusCreated    GradeStatus = "CREATED"
	GradeStatusInProgress GradeStatus = "IN_PROGRESS"
	GradeStatusDone       GradeStatus = "DONE"
)

type GradeKind string

const (
	GradeKindParent GradeKind = "PARENT"
	GradeKindSub    GradeKind = "SUB"
)

const (
	MinPoint = 0
	MaxPoint = 10
)

var validate = validator.New()

// GradeStructure is the grading scheme of a single course.
type GradeStructure struct {
	ID        string      `db:"id" json:"id"`
	CourseID  string      `db:"course_id" json:"course_id" validate:"required"`
	Name      string      `db:"name" json:"name" validate:"required,max=255"`
	Status    GradeStatus `db:"status" json:"status" validate:"required,oneof=CREATED IN_PROGRESS DONE"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`

	GradeTypes []GradeType `db:"-" json:"grade_types,omitempty"`
}

// GradeType is one weighted node of the grading tree. ParentID is nil for
// top-level nodes.
type GradeType struct {
	ID               string      `db:"id" json:"id"`
	GradeStructureID string      `db:"grade_structure_id" json:"grade_structure_id"`
	ParentID         *string     `db:"parent_id" json:"parent_id,omitempty"`
	Label            string      `db:"label" json:"label" validate:"required,max=255"`
	Description      string      `db:"description" json:"desc"`
	Percentage       float64     `db:"percentage" json:"percentage" validate:"gte=0,lte=100"`
	Kind             GradeKind   `db:"kind" json:"type" validate:"required,oneof=PARENT SUB"`
	Status           GradeStatus `db:"status" json:"status" validate:"required,oneof=CREATED IN_PROGRESS DONE"`
	Position         int         `db:"position" json:"position"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`

	SubTypes []GradeType `db:"-" json:"grade_sub_types,omitempty"`
}

func (g *GradeType) IsTopLevel() bool {
	return g.ParentID == nil || *g.ParentID == ""
}

// UserCourseGrade is the score of one student at one grade type.
type UserCourseGrade struct {
	ID          string    `db:"id" json:"id"`
	GradeTypeID string    `db:"grade_type_id" json:"grade_type_id" validate:"required"`
	StudentID   string    `db:"student_id" json:"student_id" validate:"required,max=64"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Point       float64   `db:"point" json:"point" validate:"gte=0,lte=10"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (s *GradeStructure) Validate() error {
	return validate.Struct(s)
}

func (g *GradeType) Validate() error {
	return validate.Struct(g)
}

func (u *UserCourseGrade) Validate() error {
	return validate.Struct(u)
}

// ValidPoint reports whether p is inside the grading scale.
func ValidPoint(p float64) bool {
	return p >= MinPoint && p <= MaxPoint
}
