package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
)

func draftKey(userID string) string {
	return "enrollmentDraft-" + userID
}

// DraftRepository persists per-student enrollment drafts. A draft is
// overwritten on every save and removed for good on submission.
type DraftRepository struct {
	store kvstore.Store
}

// NewDraftRepository constructs the repository.
func NewDraftRepository(store kvstore.Store) *DraftRepository {
	return &DraftRepository{store: store}
}

// Save overwrites the draft for draft.UserID.
func (r *DraftRepository) Save(ctx context.Context, draft *models.EnrollmentDraft) error {
	if draft.UserID == "" {
		return fmt.Errorf("save draft: missing user id")
	}
	draft.SavedAt = time.Now().UTC()
	if err := r.store.Set(ctx, draftKey(draft.UserID), draft); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Find returns the draft for userID, or ErrNotFound.
func (r *DraftRepository) Find(ctx context.Context, userID string) (*models.EnrollmentDraft, error) {
	var draft models.EnrollmentDraft
	if err := r.store.Get(ctx, draftKey(userID), &draft); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find draft: %w", err)
	}
	return &draft, nil
}

// Delete removes the draft for userID.
func (r *DraftRepository) Delete(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, draftKey(userID)); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
