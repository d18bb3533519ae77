package app

import "github.com/shrimpsizemoose/gradebook/internal/models"

type GradeTypeInput struct {
	Label       string           `json:"label" validate:"required,max=255"`
	Description string           `json:"desc"`
	Percentage  float64          `json:"percentage" validate:"gte=0,lte=100"`
	Position    *int             `json:"position,omitempty"`
	SubTypes    []GradeTypeInput `json:"grade_sub_types,omitempty" validate:"dive"`
}

type CreateStructureInput struct {
	CourseID   string           `json:"course_id" validate:"required"`
	Name       string           `json:"name" validate:"required,max=255"`
	GradeTypes []GradeTypeInput `json:"grade_types,omitempty" validate:"dive"`
}

type UpdateStructureInput struct {
	Name   *string             `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Status *models.GradeStatus `json:"status,omitempty" validate:"omitempty,oneof=CREATED IN_PROGRESS"`
}

type UpdateTypeInput struct {
	Label       *string  `json:"label,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"desc,omitempty"`
	Percentage  *float64 `json:"percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	Position    *int     `json:"position,omitempty"`
}

// FinalizeInput names who finalizes and who hears about it.
type FinalizeInput struct {
	UserID       string   `json:"-" validate:"required"`
	RecipientIDs []string `json:"recipient_ids"`
}

type ScoreInput struct {
	StudentID string  `json:"student_id" validate:"required,max=64"`
	Point     float64 `json:"point" validate:"gte=0,lte=10"`
}

type TypePointInput struct {
	GradeTypeID string  `json:"grade_type_id" validate:"required"`
	Point       float64 `json:"point" validate:"gte=0,lte=10"`
}

type CreateReviewInput struct {
	UserID        string   `json:"-" validate:"required"`
	StudentID     string   `json:"-" validate:"required"`
	GradeTypeID   string   `json:"grade_type_id" validate:"required"`
	Topic         string   `json:"topic" validate:"required,max=255"`
	Description   string   `json:"desc"`
	ExpectedGrade float64  `json:"expected_grade" validate:"gte=0,lte=10"`
	RecipientIDs  []string `json:"recipient_ids"`
}

type UpdateReviewInput struct {
	Topic         *string  `json:"topic,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string  `json:"desc,omitempty"`
	ExpectedGrade *float64 `json:"expected_grade,omitempty" validate:"omitempty,gte=0,lte=10"`
}

type ResultInput struct {
	TeacherID string  `json:"-" validate:"required"`
	Point     float64 `json:"point" validate:"gte=0,lte=10"`
	Feedback  string  `json:"feedback"`
}
