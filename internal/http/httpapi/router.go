package httpapi

import (
	"io/fs"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bananaart/internal/http/handlers"
	"bananaart/internal/infra"
	"bananaart/internal/middleware"
)

// Options configures the surrounding middleware and static serving.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	StaticDir       string
	StaticPrefix    string

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer, middleware.Logger(opts.Logger), middleware.CORS(opts.AllowedOrigins))

	// Health
	r.Get("/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)
		r.Post("/client-log", app.ClientLog)

		r.Route("/images", func(r chi.Router) {
			r.Get("/", app.ListImages)
			r.Post("/", app.UploadImage)
			r.Patch("/{id}", app.PatchImage)
			r.Delete("/{id}", app.DeleteImage)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", app.ListTemplates)
			r.Post("/", app.CreateTemplate)
			r.Get("/{id}", app.GetTemplate)
			r.Put("/{id}", app.UpdateTemplate)
			r.Delete("/{id}", app.DeleteTemplate)
		})

		r.Route("/generations", func(r chi.Router) {
			r.Get("/", app.ListGenerations)
			r.Get("/{id}", app.GetGeneration)
			r.Get("/{id}/archive", app.GenerationArchive)
			r.Delete("/{id}", app.DeleteGeneration)

			// Submissions reach the model; they are paced per client.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
				r.Post("/", app.CreateGeneration)
				r.Post("/direct", app.CreateGenerationDirect)
				r.Post("/from-template", app.CreateGenerationFromTemplate)
				r.Post("/from-template-direct", app.CreateGenerationFromTemplateDirect)
			})
		})

		// Legacy paths kept for older clients.
		r.Post("/upload", app.UploadImage)
		r.Get("/history", app.ListGenerations)
	})

	if opts.StaticDir != "" {
		prefix := "/" + strings.Trim(opts.StaticPrefix, "/")
		if prefix == "/" {
			prefix = "/static"
		}
		static := stdhttp.StripPrefix(prefix, stdhttp.FileServer(noDirFS{stdhttp.Dir(opts.StaticDir)}))
		r.Handle(prefix+"/*", static)
	}

	return r
}

// noDirFS hides directory listings under the static prefix.
type noDirFS struct {
	fs stdhttp.FileSystem
}

func (n noDirFS) Open(name string) (stdhttp.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
