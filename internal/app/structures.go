package app

import (
	"context"
	"fmt"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/scoring"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// CreateStructure creates the grading structure of a course together with
// any top-level grade types and their sub types.
func (s *Service) CreateStructure(ctx context.Context, in CreateStructureInput) (*models.GradeStructure, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	gs := &models.GradeStructure{CourseID: in.CourseID, Name: in.Name, Status: models.GradeStatusCreated}
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		if err := tx.CreateStructure(ctx, gs); err != nil {
			return err
		}
		for i, t := range in.GradeTypes {
			if err := createTypeTree(ctx, tx, gs.ID, nil, t, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "grade structure for course %s", in.CourseID)
	}

	return s.GetStructure(ctx, gs.ID)
}

func createTypeTree(ctx context.Context, tx store.Tx, structureID string, parentID *string, in GradeTypeInput, pos int) error {
	gt := newGradeType(structureID, parentID, in, pos)
	if err := tx.CreateType(ctx, gt); err != nil {
		return err
	}
	for i, sub := range in.SubTypes {
		if err := createTypeTree(ctx, tx, structureID, &gt.ID, sub, i); err != nil {
			return err
		}
	}
	return nil
}

// newGradeType builds a PARENT for top-level input and a SUB otherwise.
// Nested input below a sub type makes that node a PARENT too.
func newGradeType(structureID string, parentID *string, in GradeTypeInput, pos int) *models.GradeType {
	kind := models.GradeKindSub
	if parentID == nil || len(in.SubTypes) > 0 {
		kind = models.GradeKindParent
	}
	if in.Position != nil {
		pos = *in.Position
	}
	return &models.GradeType{
		GradeStructureID: structureID,
		ParentID:         parentID,
		Label:            in.Label,
		Description:      in.Description,
		Percentage:       in.Percentage,
		Kind:             kind,
		Status:           models.GradeStatusCreated,
		Position:         pos,
	}
}

// GetStructure returns the structure with its grade types nested.
func (s *Service) GetStructure(ctx context.Context, id string) (*models.GradeStructure, error) {
	gs, err := s.Store.GetStructure(ctx, id)
	if err != nil {
		return nil, translate(err, "grade structure %s", id)
	}
	return s.withTypes(ctx, gs)
}

func (s *Service) GetStructureByCourse(ctx context.Context, courseID string) (*models.GradeStructure, error) {
	gs, err := s.Store.GetStructureByCourse(ctx, courseID)
	if err != nil {
		return nil, translate(err, "grade structure for course %s", courseID)
	}
	return s.withTypes(ctx, gs)
}

func (s *Service) withTypes(ctx context.Context, gs *models.GradeStructure) (*models.GradeStructure, error) {
	tree, err := s.loadTree(ctx, s.Store, gs.ID)
	if err != nil {
		return nil, err
	}
	gs.GradeTypes = nest(tree.Roots)
	return gs, nil
}

func nest(nodes []*scoring.Node) []models.GradeType {
	out := make([]models.GradeType, 0, len(nodes))
	for _, n := range nodes {
		gt := n.Type
		gt.SubTypes = nest(n.Children)
		out = append(out, gt)
	}
	return out
}

// loadTree builds the grade tree of a structure and logs weight warnings.
func (s *Service) loadTree(ctx context.Context, db store.Tx, structureID string) (*scoring.Tree, error) {
	types, err := db.ListTypes(ctx, structureID)
	if err != nil {
		return nil, translate(err, "grade types of structure %s", structureID)
	}
	tree, err := scoring.BuildTree(types)
	if err != nil {
		return nil, translate(err, "grade tree of structure %s", structureID)
	}
	for _, w := range tree.Warnings() {
		logger.Info.Printf("Structure %s: %s", structureID, w)
	}
	return tree, nil
}

func (s *Service) UpdateStructure(ctx context.Context, id string, in UpdateStructureInput) (*models.GradeStructure, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	gs, err := s.Store.GetStructure(ctx, id)
	if err != nil {
		return nil, translate(err, "grade structure %s", id)
	}
	if in.Name != nil {
		gs.Name = *in.Name
	}
	if in.Status != nil {
		if gs.Status == models.GradeStatusDone {
			return nil, apperr.InvalidState("grade structure %s is finalized", id)
		}
		gs.Status = *in.Status
	}
	if err := s.Store.UpdateStructure(ctx, gs); err != nil {
		return nil, translate(err, "grade structure %s", id)
	}
	return s.withTypes(ctx, gs)
}

func (s *Service) DeleteStructure(ctx context.Context, id string) error {
	return translate(s.Store.DeleteStructure(ctx, id), "grade structure %s", id)
}

// FinalizeStructure marks the structure DONE when the finalize policy
// accepts its grade types.
func (s *Service) FinalizeStructure(ctx context.Context, id string, in FinalizeInput) (*models.GradeStructure, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	var gs *models.GradeStructure
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		var err error
		if gs, err = tx.GetStructure(ctx, id); err != nil {
			return err
		}
		tree, err := s.loadTree(ctx, tx, id)
		if err != nil {
			return err
		}
		if !s.Grader.CanFinalizeStructure(tree) {
			return apperr.InvalidState("some grade types of structure %s are not completed yet", id)
		}
		gs.Status = models.GradeStatusDone
		return tx.UpdateStructure(ctx, gs)
	})
	if err != nil {
		return nil, translate(err, "grade structure %s", id)
	}

	s.notify(ctx, models.Notification{
		SenderID:         in.UserID,
		RecipientIDs:     recipients(in.UserID, in.RecipientIDs),
		Title:            "Finalized Grade Composition",
		Content:          fmt.Sprintf("The grade composition %s has been marked as finalized", gs.Name),
		Type:             models.NotificationTypeNotification,
		RedirectEndpoint: fmt.Sprintf("/grade/%s", id),
		Status:           "processing",
	})

	return s.withTypes(ctx, gs)
}
