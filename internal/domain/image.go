package domain

import "time"

// StoredImage is an uploaded binary. Only Hidden changes after creation.
type StoredImage struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	StorageRef string    `json:"filepath"`
	Hidden     bool      `json:"is_hidden"`
	CreatedAt  time.Time `json:"upload_time"`
}

// ListParams is shared by the paginated list endpoints.
type ListParams struct {
	Limit         int
	Offset        int
	IncludeHidden bool
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Normalize clamps the pagination window into the supported range.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
