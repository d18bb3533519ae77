package app

import (
	"context"
	"fmt"

	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// CreateType adds a top-level grade type to a structure.
func (s *Service) CreateType(ctx context.Context, structureID string, in GradeTypeInput) (*models.GradeType, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	var created *models.GradeType
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		if _, err := tx.GetStructure(ctx, structureID); err != nil {
			return err
		}
		types, err := tx.ListTypes(ctx, structureID)
		if err != nil {
			return err
		}
		created = newGradeType(structureID, nil, in, countChildren(types, nil))
		if err := tx.CreateType(ctx, created); err != nil {
			return err
		}
		for i, sub := range in.SubTypes {
			if err := createTypeTree(ctx, tx, structureID, &created.ID, sub, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "grade type %q", in.Label)
	}
	return s.GetType(ctx, created.ID)
}

// AddSubType adds a grade type under a PARENT grade type.
func (s *Service) AddSubType(ctx context.Context, parentID string, in GradeTypeInput) (*models.GradeType, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	var created *models.GradeType
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		parent, err := tx.GetType(ctx, parentID)
		if err != nil {
			return err
		}
		if parent.Kind != models.GradeKindParent {
			return apperr.Validation("grade type %s is not a parent grade type", parentID)
		}
		types, err := tx.ListTypes(ctx, parent.GradeStructureID)
		if err != nil {
			return err
		}
		created = newGradeType(parent.GradeStructureID, &parent.ID, in, countChildren(types, &parent.ID))
		if err := tx.CreateType(ctx, created); err != nil {
			return err
		}
		for i, sub := range in.SubTypes {
			if err := createTypeTree(ctx, tx, parent.GradeStructureID, &created.ID, sub, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "grade type %q", in.Label)
	}
	return s.GetType(ctx, created.ID)
}

// UpsertTypes creates or updates, by label, the children of parentID, or
// the top-level types of the structure when parentID is empty. All rows
// commit together.
func (s *Service) UpsertTypes(ctx context.Context, structureID, parentID string, in []GradeTypeInput) ([]models.GradeType, error) {
	for _, t := range in {
		if err := validate.Struct(t); err != nil {
			return nil, invalid(err)
		}
	}

	var ids []string
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		var parent *string
		if parentID != "" {
			p, err := tx.GetType(ctx, parentID)
			if err != nil {
				return err
			}
			if p.GradeStructureID != structureID {
				return apperr.Validation("grade type %s does not belong to structure %s", parentID, structureID)
			}
			if p.Kind != models.GradeKindParent {
				return apperr.Validation("grade type %s is not a parent grade type", parentID)
			}
			parent = &p.ID
		} else if _, err := tx.GetStructure(ctx, structureID); err != nil {
			return err
		}

		types, err := tx.ListTypes(ctx, structureID)
		if err != nil {
			return err
		}
		existing := make(map[string]models.GradeType)
		for _, t := range types {
			if sameParent(t.ParentID, parent) {
				existing[t.Label] = t
			}
		}

		next := len(existing)
		for _, t := range in {
			if cur, ok := existing[t.Label]; ok {
				cur.Description = t.Description
				cur.Percentage = t.Percentage
				if t.Position != nil {
					cur.Position = *t.Position
				}
				if err := tx.UpdateType(ctx, &cur); err != nil {
					return err
				}
				ids = append(ids, cur.ID)
				continue
			}
			gt := newGradeType(structureID, parent, t, next)
			next++
			if err := tx.CreateType(ctx, gt); err != nil {
				return err
			}
			existing[gt.Label] = *gt
			ids = append(ids, gt.ID)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "grade types of structure %s", structureID)
	}

	out := make([]models.GradeType, 0, len(ids))
	for _, id := range ids {
		gt, err := s.GetType(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *gt)
	}
	return out, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func countChildren(types []models.GradeType, parent *string) int {
	n := 0
	for _, t := range types {
		if sameParent(t.ParentID, parent) {
			n++
		}
	}
	return n
}

// GetType returns a grade type with its descendants nested.
func (s *Service) GetType(ctx context.Context, id string) (*models.GradeType, error) {
	gt, err := s.Store.GetType(ctx, id)
	if err != nil {
		return nil, translate(err, "grade type %s", id)
	}
	tree, err := s.loadTree(ctx, s.Store, gt.GradeStructureID)
	if err != nil {
		return nil, err
	}
	node, ok := tree.Find(id)
	if !ok {
		return nil, apperr.NotFound("grade type %s not found", id)
	}
	out := node.Type
	out.SubTypes = nest(node.Children)
	return &out, nil
}

func (s *Service) UpdateType(ctx context.Context, id string, in UpdateTypeInput) (*models.GradeType, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	gt, err := s.Store.GetType(ctx, id)
	if err != nil {
		return nil, translate(err, "grade type %s", id)
	}
	if in.Label != nil {
		gt.Label = *in.Label
	}
	if in.Description != nil {
		gt.Description = *in.Description
	}
	if in.Percentage != nil {
		gt.Percentage = *in.Percentage
	}
	if in.Position != nil {
		gt.Position = *in.Position
	}
	if err := s.Store.UpdateType(ctx, gt); err != nil {
		return nil, translate(err, "grade type %q", gt.Label)
	}
	return s.GetType(ctx, id)
}

func (s *Service) DeleteType(ctx context.Context, id string) error {
	return translate(s.Store.DeleteType(ctx, id), "grade type %s", id)
}

// FinalizeType marks a grade type DONE when the finalize policy accepts its
// sub types.
func (s *Service) FinalizeType(ctx context.Context, id string, in FinalizeInput) (*models.GradeType, error) {
	if err := validate.Struct(in); err != nil {
		return nil, invalid(err)
	}

	var label string
	err := s.Store.RunInTx(ctx, s.Config.EventTxTimeout(), func(tx store.Tx) error {
		gt, err := tx.GetType(ctx, id)
		if err != nil {
			return err
		}
		tree, err := s.loadTree(ctx, tx, gt.GradeStructureID)
		if err != nil {
			return err
		}
		node, ok := tree.Find(id)
		if !ok {
			return fmt.Errorf("grade type %s: %w", id, store.ErrNotFound)
		}
		if !s.Grader.CanFinalizeType(node) {
			return apperr.InvalidState("some grade sub types of %s are not completed yet", gt.Label)
		}
		gt.Status = models.GradeStatusDone
		label = gt.Label
		return tx.UpdateType(ctx, gt)
	})
	if err != nil {
		return nil, translate(err, "grade type %s", id)
	}

	s.notify(ctx, models.Notification{
		SenderID:         in.UserID,
		RecipientIDs:     recipients(in.UserID, in.RecipientIDs),
		Title:            "Finalized Grade Type",
		Content:          fmt.Sprintf("%s has been marked as finalized", label),
		Type:             models.NotificationTypeEvent,
		RedirectEndpoint: fmt.Sprintf("/grade/type/%s", id),
		Status:           "processing",
	})

	return s.GetType(ctx, id)
}
