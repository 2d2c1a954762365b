package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !a.parseMultipart(w, r) {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			a.error(w, http.StatusBadRequest, "bad_request", "file is required")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid upload")
		return
	}
	file.Close()
	data, err := readFileHeader(header)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	img, err := a.Images.Upload(r.Context(), header.Filename, data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, img)
}

func (a *App) ListImages(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	images, err := a.Images.List(r.Context(), params)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, images)
}

type imagePatchRequest struct {
	Hidden *bool `json:"hidden"`
}

func (a *App) PatchImage(w http.ResponseWriter, r *http.Request) {
	var req imagePatchRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Hidden == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "hidden is required")
		return
	}
	img, err := a.Images.SetHidden(r.Context(), chi.URLParam(r, "id"), *req.Hidden)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, img)
}

func (a *App) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := a.Images.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}
