package domain

import "time"

// Template is a reusable (prompt, aspect ratio, reference images) preset.
// ImageIDs is ordered by the stored rank of each association.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio"`
	ImageIDs    []string  `json:"image_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TemplatePatch carries the optional fields of a template update. Nil means unchanged.
type TemplatePatch struct {
	Name        *string
	Prompt      *string
	AspectRatio *string
	ImageIDs    *[]string
}

// Apply returns a copy of t with the patch applied.
func (p TemplatePatch) Apply(t Template) Template {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Prompt != nil {
		t.Prompt = *p.Prompt
	}
	if p.AspectRatio != nil {
		t.AspectRatio = *p.AspectRatio
	}
	if p.ImageIDs != nil {
		t.ImageIDs = append([]string(nil), (*p.ImageIDs)...)
	}
	return t
}
