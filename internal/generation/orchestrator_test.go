package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bananaart/internal/domain"
	"bananaart/internal/storage"
)

func seedPending(t *testing.T, repo domain.GenerationRepository, id string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.Generation{
		ID:          id,
		Prompt:      "p",
		AspectRatio: "1:1",
		CreatedAt:   time.Now().UTC(),
	}))
}

func TestRunRecordsStoredOutput(t *testing.T) {
	mem := newMem()
	repo := mem.Generations()
	store := newStore(t)
	model := &recordingModel{resp: &Response{Parts: []Part{BinaryPart([]byte("png"), "image/png")}}}
	orch := NewOrchestrator(repo, store, model, OrchestratorOptions{ModelTimeout: time.Second}, nopLogger)

	seedPending(t, repo, "g1")
	orch.Run(context.Background(), Job{GenerationID: "g1", Prompt: "p", AspectRatio: "1:1"})

	g, err := repo.GetByID(context.Background(), "g1")
	require.NoError(t, err)
	require.NotNil(t, g.Output)
	assert.Equal(t, domain.GenerationSucceeded, g.Status())
	assert.True(t, strings.HasPrefix(*g.Output, "/static/generated/gen_"))
	assert.NotNil(t, g.StartedAt)
	assert.NotNil(t, g.CompletedAt)

	data, err := store.Read(context.Background(), *g.Output)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestRunFailuresBecomeSentinel(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		opts  OrchestratorOptions
	}{
		{
			name:  "model error",
			model: modelFunc(func(context.Context, Request) (*Response, error) { return nil, errors.New("boom") }),
		},
		{
			name:  "empty response",
			model: modelFunc(func(context.Context, Request) (*Response, error) { return &Response{}, nil }),
		},
		{
			name:  "nil response",
			model: modelFunc(func(context.Context, Request) (*Response, error) { return nil, nil }),
		},
		{
			name:  "panic",
			model: modelFunc(func(context.Context, Request) (*Response, error) { panic("model exploded") }),
		},
		{
			name: "timeout",
			model: modelFunc(func(ctx context.Context, _ Request) (*Response, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			opts: OrchestratorOptions{ModelTimeout: 20 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMem().Generations()
			orch := NewOrchestrator(repo, newStore(t), tt.model, tt.opts, nopLogger)
			seedPending(t, repo, "g")

			orch.Run(context.Background(), Job{GenerationID: "g", Prompt: "p", AspectRatio: "1:1"})

			g, err := repo.GetByID(context.Background(), "g")
			require.NoError(t, err)
			require.NotNil(t, g.Output)
			assert.Equal(t, domain.OutputFailed, *g.Output)
			assert.Equal(t, domain.GenerationFailed, g.Status())
		})
	}
}

func TestRunRecordsOutcomeWhenContextCancelled(t *testing.T) {
	repo := newMem().Generations()
	model := modelFunc(func(ctx context.Context, _ Request) (*Response, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Response{Text: "ok"}, nil
	})
	orch := NewOrchestrator(repo, newStore(t), model, OrchestratorOptions{}, nopLogger)
	seedPending(t, repo, "g")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	orch.Run(ctx, Job{GenerationID: "g", Prompt: "p", AspectRatio: "1:1"})

	g, err := repo.GetByID(context.Background(), "g")
	require.NoError(t, err)
	require.NotNil(t, g.Output)
	assert.Equal(t, domain.OutputFailed, *g.Output)
}

func TestRunDropsArtifactWhenGenerationVanished(t *testing.T) {
	repo := newMem().Generations()
	store := newStore(t)
	var stored string
	model := modelFunc(func(ctx context.Context, _ Request) (*Response, error) {
		// The record is deleted while the model is working.
		_, err := repo.Delete(ctx, "g")
		require.NoError(t, err)
		return &Response{Parts: []Part{BinaryPart([]byte("late"), "image/png")}}, nil
	})
	orch := NewOrchestrator(repo, store, model, OrchestratorOptions{}, nopLogger)
	orch.normalizer = NewNormalizer(recordingStore{ArtifactStore: store, stored: &stored})
	seedPending(t, repo, "g")

	orch.Run(context.Background(), Job{GenerationID: "g", Prompt: "p", AspectRatio: "1:1"})

	require.NotEmpty(t, stored)
	_, err := store.Read(context.Background(), stored)
	assert.Error(t, err, "artifact of a deleted generation should be removed")
}

func TestRunPassesComposedRequest(t *testing.T) {
	repo := newMem().Generations()
	model := &recordingModel{resp: &Response{Text: "text answer"}}
	orch := NewOrchestrator(repo, newStore(t), model, OrchestratorOptions{}, nopLogger)
	seedPending(t, repo, "g")

	orch.Run(context.Background(), Job{GenerationID: "g", Prompt: "sunset", AspectRatio: "4:5"})

	req := model.last()
	require.Len(t, req.Parts, 1)
	assert.Equal(t, "sunset, aspect ratio 4:5", req.Parts[0].Text)

	g, err := repo.GetByID(context.Background(), "g")
	require.NoError(t, err)
	require.NotNil(t, g.Output)
	assert.True(t, domain.IsTextOutput(*g.Output))
}

type recordingStore struct {
	ArtifactStore
	stored *string
}

func (s recordingStore) Store(ctx context.Context, category storage.Category, data []byte, ext string) (string, error) {
	ref, err := s.ArtifactStore.Store(ctx, category, data, ext)
	*s.stored = ref
	return ref, err
}
