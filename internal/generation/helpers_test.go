package generation

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"bananaart/internal/adapter/memrepo"
	"bananaart/internal/storage"
)

type modelFunc func(ctx context.Context, req Request) (*Response, error)

func (f modelFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

type recordingModel struct {
	mu       sync.Mutex
	requests []Request
	resp     *Response
	err      error
}

func (m *recordingModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.resp, m.err
}

func (m *recordingModel) last() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

type inlineQueue struct {
	orch *Orchestrator
}

func (r inlineQueue) Enqueue(ctx context.Context, job Job) error {
	r.orch.Run(ctx, job)
	return nil
}

type failingQueue struct{ err error }

func (q failingQueue) Enqueue(ctx context.Context, job Job) error { return q.err }

func newStore(t *testing.T) *storage.FileStore {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir(), storage.Options{Prefix: "/static"})
	require.NoError(t, err)
	return store
}

func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var nopLogger = zerolog.Nop()

func newMem() *memrepo.Store { return memrepo.New() }
