package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"bananaart/internal/domain"
	"bananaart/internal/generation"
	"bananaart/pkg/zip"
)

// generationResponse adds the derived status and the resolved source image
// records to a generation.
type generationResponse struct {
	*domain.Generation
	Status       domain.GenerationStatus `json:"status"`
	SourceImages []domain.StoredImage    `json:"source_images"`
}

type generationRequest struct {
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspect_ratio"`
	ImageIDs    []string `json:"image_ids"`
}

type templateGenerationRequest struct {
	TemplateID  string   `json:"template_id"`
	ImageIDs    []string `json:"image_ids"`
	Prompt      *string  `json:"prompt"`
	AspectRatio *string  `json:"aspect_ratio"`
}

func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if !a.decode(w, r, &req) {
		return
	}
	g, err := a.Generations.SubmitByIDs(r.Context(), generation.SubmitRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		ImageIDs:    req.ImageIDs,
	})
	a.accepted(w, r, g, err)
}

func (a *App) CreateGenerationDirect(w http.ResponseWriter, r *http.Request) {
	if !a.parseMultipart(w, r) {
		return
	}
	files, err := formFiles(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	g, err := a.Generations.SubmitUploads(r.Context(), r.FormValue("prompt"), r.FormValue("aspect_ratio"), files)
	a.accepted(w, r, g, err)
}

func (a *App) CreateGenerationFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateGenerationRequest
	if !a.decode(w, r, &req) {
		return
	}
	g, err := a.Generations.SubmitTemplate(r.Context(), generation.TemplateSubmitRequest{
		TemplateID:  req.TemplateID,
		ImageIDs:    req.ImageIDs,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	})
	a.accepted(w, r, g, err)
}

func (a *App) CreateGenerationFromTemplateDirect(w http.ResponseWriter, r *http.Request) {
	if !a.parseMultipart(w, r) {
		return
	}
	files, err := formFiles(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	g, err := a.Generations.SubmitTemplateUploads(r.Context(), r.FormValue("template_id"),
		optionalFormValue(r, "prompt"), optionalFormValue(r, "aspect_ratio"), files)
	a.accepted(w, r, g, err)
}

func (a *App) accepted(w http.ResponseWriter, r *http.Request, g *domain.Generation, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.present(r.Context(), []domain.Generation{*g})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, resp[0])
}

func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	generations, err := a.Generations.List(r.Context(), params)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.present(r.Context(), generations)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	g, err := a.Generations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.present(r.Context(), []domain.Generation{*g})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, resp[0])
}

func (a *App) DeleteGeneration(w http.ResponseWriter, r *http.Request) {
	if err := a.Generations.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GenerationArchive streams a zip with the source images in order followed by
// the output artifact when one exists.
func (a *App) GenerationArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	g, err := a.Generations.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sources, err := a.Images.ResolveExisting(ctx, g.SourceImageIDs)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	entries := make([]zip.Entry, 0, len(sources)+1)
	for i, img := range sources {
		data, err := a.Artifacts.Read(ctx, img.StorageRef)
		if err != nil {
			a.Logger.Warn().Err(err).Str("generation_id", g.ID).Str("image_id", img.ID).Msg("archive: skip unreadable source")
			continue
		}
		entries = append(entries, zip.Entry{
			Name:     fmt.Sprintf("sources/%02d_%s", i+1, img.Filename),
			Data:     data,
			Modified: img.CreatedAt,
		})
	}
	if g.Status() == domain.GenerationSucceeded {
		data, err := a.Artifacts.Read(ctx, *g.Output)
		if err != nil {
			a.Logger.Warn().Err(err).Str("generation_id", g.ID).Str("ref", *g.Output).Msg("archive: skip unreadable output")
		} else {
			modified := g.CreatedAt
			if g.CompletedAt != nil {
				modified = *g.CompletedAt
			}
			entries = append(entries, zip.Entry{Name: "output" + path.Ext(*g.Output), Data: data, Modified: modified})
		}
	}

	archive, err := zip.Archive(entries)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=generation-%s.zip", g.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// present resolves the source image records of every generation with one
// lookup. Sources deleted since submission are omitted.
func (a *App) present(ctx context.Context, generations []domain.Generation) ([]generationResponse, error) {
	var ids []string
	seen := make(map[string]struct{})
	for _, g := range generations {
		for _, id := range g.SourceImageIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	byID := make(map[string]domain.StoredImage, len(ids))
	if len(ids) > 0 {
		images, err := a.Images.ResolveExisting(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, img := range images {
			byID[img.ID] = img
		}
	}

	out := make([]generationResponse, 0, len(generations))
	for i := range generations {
		g := &generations[i]
		sources := make([]domain.StoredImage, 0, len(g.SourceImageIDs))
		for _, id := range g.SourceImageIDs {
			if img, ok := byID[id]; ok {
				sources = append(sources, img)
			}
		}
		out = append(out, generationResponse{Generation: g, Status: g.Status(), SourceImages: sources})
	}
	return out, nil
}
