package repository

import (
	"context"
	"errors"

	"github.com/grantwell/grantwell/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a saved grant lookup matches nothing.
var ErrNotFound = errors.New("saved grant not found")

// SavedGrantRepository handles persistence of tracked grant opportunities.
type SavedGrantRepository struct {
	db *gorm.DB
}

// NewSavedGrantRepository creates a new SavedGrantRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SavedGrantRepository: repository instance bound to db.
func NewSavedGrantRepository(db *gorm.DB) *SavedGrantRepository {
	return &SavedGrantRepository{db: db}
}

// Save creates or refreshes a saved grant keyed by (source, title, funder).
// Re-saving an already tracked opportunity updates its snapshot fields but
// keeps its identity, notes, and status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sg: saved grant record to persist.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *SavedGrantRepository) Save(ctx context.Context, sg *domain.SavedGrant) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source"}, {Name: "title"}, {Name: "funder"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount_min", "amount_max", "deadline", "description",
			"eligibility", "source_data", "updated_at",
		}),
	}).Create(sg).Error
}

// GetByID retrieves a saved grant by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: saved grant ID.
// Returns:
//   - *domain.SavedGrant: record if found.
//   - error: ErrNotFound if no record matches, otherwise the query error.
func (r *SavedGrantRepository) GetByID(ctx context.Context, id string) (*domain.SavedGrant, error) {
	var sg domain.SavedGrant
	if err := r.db.WithContext(ctx).First(&sg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sg, nil
}

// List returns saved grants, optionally filtered by status, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: status filter; empty string matches all.
// Returns:
//   - []domain.SavedGrant: matching records.
//   - error: non-nil if the query fails.
func (r *SavedGrantRepository) List(ctx context.Context, status domain.SavedGrantStatus) ([]domain.SavedGrant, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var grants []domain.SavedGrant
	if err := q.Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// UpdateStatus changes the tracking status of a saved grant.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: saved grant ID.
//   - status: new status value.
// Returns:
//   - error: ErrNotFound if no record matches, otherwise the update error.
func (r *SavedGrantRepository) UpdateStatus(ctx context.Context, id string, status domain.SavedGrantStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.SavedGrant{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a saved grant.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: saved grant ID.
// Returns:
//   - error: ErrNotFound if no record matches, otherwise the delete error.
func (r *SavedGrantRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&domain.SavedGrant{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
