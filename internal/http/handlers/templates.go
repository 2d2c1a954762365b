package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bananaart/internal/domain"
	"bananaart/internal/library"
)

type templateRequest struct {
	Name        string   `json:"name"`
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspect_ratio"`
	ImageIDs    []string `json:"image_ids"`
}

// templatePatchRequest leaves absent fields unchanged.
type templatePatchRequest struct {
	Name        *string   `json:"name"`
	Prompt      *string   `json:"prompt"`
	AspectRatio *string   `json:"aspect_ratio"`
	ImageIDs    *[]string `json:"image_ids"`
}

func (a *App) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !a.decode(w, r, &req) {
		return
	}
	tmpl, err := a.Templates.Create(r.Context(), library.TemplateInput{
		Name:        req.Name,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		ImageIDs:    req.ImageIDs,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, tmpl)
}

func (a *App) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templatePatchRequest
	if !a.decode(w, r, &req) {
		return
	}
	tmpl, err := a.Templates.Update(r.Context(), chi.URLParam(r, "id"), domain.TemplatePatch{
		Name:        req.Name,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		ImageIDs:    req.ImageIDs,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, tmpl)
}

func (a *App) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := a.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, tmpl)
}

func (a *App) ListTemplates(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	templates, err := a.Templates.List(r.Context(), params)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, templates)
}

func (a *App) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := a.Templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}
