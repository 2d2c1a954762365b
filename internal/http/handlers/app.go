package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"bananaart/internal/domain"
	"bananaart/internal/generation"
	"bananaart/internal/infra"
	"bananaart/internal/library"
)

// ImageService is the image library surface used by the API.
type ImageService interface {
	Upload(ctx context.Context, filename string, data []byte) (*domain.StoredImage, error)
	List(ctx context.Context, params domain.ListParams) ([]domain.StoredImage, error)
	SetHidden(ctx context.Context, id string, hidden bool) (*domain.StoredImage, error)
	Delete(ctx context.Context, id string) error
	ResolveExisting(ctx context.Context, ids []string) ([]domain.StoredImage, error)
}

// TemplateService is the template surface used by the API.
type TemplateService interface {
	Create(ctx context.Context, in library.TemplateInput) (*domain.Template, error)
	Update(ctx context.Context, id string, patch domain.TemplatePatch) (*domain.Template, error)
	Get(ctx context.Context, id string) (*domain.Template, error)
	List(ctx context.Context, params domain.ListParams) ([]domain.Template, error)
	Delete(ctx context.Context, id string) error
}

// GenerationService is the generation surface used by the API.
type GenerationService interface {
	SubmitByIDs(ctx context.Context, req generation.SubmitRequest) (*domain.Generation, error)
	SubmitUploads(ctx context.Context, prompt, aspectRatio string, files []generation.Upload) (*domain.Generation, error)
	SubmitTemplate(ctx context.Context, req generation.TemplateSubmitRequest) (*domain.Generation, error)
	SubmitTemplateUploads(ctx context.Context, templateID string, prompt, aspectRatio *string, files []generation.Upload) (*domain.Generation, error)
	Get(ctx context.Context, id string) (*domain.Generation, error)
	List(ctx context.Context, params domain.ListParams) ([]domain.Generation, error)
	Delete(ctx context.Context, id string) error
}

// ArtifactReader loads stored binaries by reference.
type ArtifactReader interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Images         ImageService
	Templates      TemplateService
	Generations    GenerationService
	Artifacts      ArtifactReader
	MaxUploadBytes int64
	Logger         infra.Logger
}

const defaultMaxUploadBytes = 20 << 20

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail maps a service error onto the HTTP error body.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	default:
		a.Logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// listParams reads limit and offset; skip is accepted as an alias of offset.
func listParams(r *http.Request) (domain.ListParams, error) {
	q := r.URL.Query()
	var p domain.ListParams
	var err error
	if p.Limit, err = queryInt(q.Get("limit")); err != nil {
		return p, fmt.Errorf("%w: limit must be an integer", domain.ErrValidation)
	}
	offset := q.Get("offset")
	if offset == "" {
		offset = q.Get("skip")
	}
	if p.Offset, err = queryInt(offset); err != nil {
		return p, fmt.Errorf("%w: offset must be an integer", domain.ErrValidation)
	}
	if v := q.Get("include_hidden"); v != "" {
		if p.IncludeHidden, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("%w: include_hidden must be a boolean", domain.ErrValidation)
		}
	}
	return p.Normalize(), nil
}

func queryInt(v string) (int, error) {
	if strings.TrimSpace(v) == "" {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(v))
}

func (a *App) maxUploadBytes() int64 {
	if a.MaxUploadBytes > 0 {
		return a.MaxUploadBytes
	}
	return defaultMaxUploadBytes
}

// parseMultipart bounds the body and parses the form. It writes the error
// response itself and reports whether the handler should continue.
func (a *App) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	limit := a.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", fmt.Sprintf("upload exceeds %d bytes", limit))
			return false
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return false
	}
	return true
}

// formFiles collects the uploaded files in submission order. Both "files"
// and "files[]" are accepted.
func formFiles(r *http.Request) ([]generation.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["files[]"]...)
	uploads := make([]generation.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, generation.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

// optionalFormValue distinguishes an absent field from an empty one.
func optionalFormValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
