package domain

import "time"

// SavedGrantStatus represents the tracking status of a saved grant.
// Values include SavedGrantStatusTracked, SavedGrantStatusApplied, and SavedGrantStatusClosed.
type SavedGrantStatus string

const (
	SavedGrantStatusTracked SavedGrantStatus = "tracked"
	SavedGrantStatusApplied SavedGrantStatus = "applied"
	SavedGrantStatusClosed  SavedGrantStatus = "closed"
)

// SavedGrant represents a grant opportunity the organization has chosen to
// track. The unique index on (source, title, funder) mirrors the dedup key
// used during aggregation so the same opportunity is never saved twice.
type SavedGrant struct {
	ID          string           `gorm:"type:text;primaryKey" json:"id"`
	Source      string           `gorm:"type:text;not null;index:idx_saved_grants_key,unique" json:"source"`
	Title       string           `gorm:"type:text;not null;index:idx_saved_grants_key,unique" json:"title"`
	Funder      string           `gorm:"type:text;not null;index:idx_saved_grants_key,unique" json:"funder"`
	AmountMin   float64          `json:"amount_min,omitempty"`
	AmountMax   float64          `json:"amount_max,omitempty"`
	Deadline    string           `gorm:"type:text" json:"deadline,omitempty"`
	Description string           `gorm:"type:text" json:"description,omitempty"`
	Eligibility string           `gorm:"type:text" json:"eligibility,omitempty"`
	SourceData  JSONMap          `gorm:"type:text" json:"source_data,omitempty"`
	Notes       string           `gorm:"type:text" json:"notes,omitempty"`
	Status      SavedGrantStatus `gorm:"type:text;index:idx_saved_grants_status;default:tracked" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName returns the database table name for SavedGrant.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (SavedGrant) TableName() string {
	return "saved_grants"
}

// FromGrant builds a SavedGrant from a standardized Grant record.
func FromGrant(id string, g Grant) SavedGrant {
	return SavedGrant{
		ID:          id,
		Source:      g.Source,
		Title:       g.Title,
		Funder:      g.Funder,
		AmountMin:   g.AmountMin,
		AmountMax:   g.AmountMax,
		Deadline:    g.Deadline,
		Description: g.Description,
		Eligibility: g.Eligibility,
		SourceData:  g.SourceData,
		Status:      SavedGrantStatusTracked,
	}
}
