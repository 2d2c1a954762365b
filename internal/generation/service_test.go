package generation

import (
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bananaart/internal/adapter/memrepo"
	"bananaart/internal/domain"
	"bananaart/internal/library"
	"bananaart/internal/storage"
)

type serviceFixture struct {
	mem       *memrepo.Store
	store     *storage.FileStore
	images    *library.Images
	templates *library.Templates
	model     *recordingModel
	svc       *Service
}

func newServiceFixture(t *testing.T, opts ServiceOptions) *serviceFixture {
	t.Helper()
	mem := newMem()
	store := newStore(t)
	images := library.NewImages(mem.Images(), store, nopLogger)
	templates := library.NewTemplates(mem.Templates(), images, nopLogger)
	model := &recordingModel{resp: &Response{Parts: []Part{BinaryPart([]byte("out"), "image/webp")}}}
	orch := NewOrchestrator(mem.Generations(), store, model, OrchestratorOptions{}, nopLogger)
	svc := NewService(mem.Generations(), images, templates, store, inlineQueue{orch: orch}, opts, nopLogger)
	return &serviceFixture{mem: mem, store: store, images: images, templates: templates, model: model, svc: svc}
}

func (f *serviceFixture) upload(t *testing.T, name string, c color.Color) *domain.StoredImage {
	t.Helper()
	img, err := f.images.Upload(context.Background(), name, pngBytes(t, c))
	require.NoError(t, err)
	return img
}

func binaryData(req Request) [][]byte {
	var out [][]byte
	for _, p := range req.Parts {
		if p.Kind == PartBinary {
			out = append(out, p.Data)
		}
	}
	return out
}

func TestSubmitByIDsKeepsOrderAndMirrorsPrimary(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()
	a := f.upload(t, "a.png", color.RGBA{R: 1, A: 255})
	b := f.upload(t, "b.png", color.RGBA{G: 1, A: 255})

	g, err := f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: " hi ", ImageIDs: []string{b.ID, a.ID}})
	require.NoError(t, err)
	assert.Equal(t, "hi", g.Prompt)
	assert.Equal(t, domain.DefaultAspectRatio, g.AspectRatio)
	assert.Equal(t, []string{b.ID, a.ID}, g.SourceImageIDs)
	require.NotNil(t, g.SourceImageID)
	assert.Equal(t, b.ID, *g.SourceImageID)

	stored, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationSucceeded, stored.Status())
	assert.Contains(t, *stored.Output, ".webp")

	bData, _ := f.store.Read(ctx, b.StorageRef)
	aData, _ := f.store.Read(ctx, a.StorageRef)
	assert.Equal(t, [][]byte{bData, aData}, binaryData(f.model.last()))
}

func TestSubmitByIDsValidation(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()

	_, err := f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: "p", AspectRatio: "wide"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: "p", ImageIDs: []string{"missing"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := f.svc.List(ctx, domain.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, list, "rejected submits must not persist a generation")
}

func TestSubmitUploadsStoresFilesAsImages(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()

	g, err := f.svc.SubmitUploads(ctx, "p", "3:2", []Upload{
		{Filename: "one.png", Data: pngBytes(t, color.White)},
		{Filename: "two.png", Data: pngBytes(t, color.Black)},
	})
	require.NoError(t, err)
	require.Len(t, g.SourceImageIDs, 2)

	images, err := f.images.Resolve(ctx, g.SourceImageIDs)
	require.NoError(t, err)
	assert.Equal(t, "one.png", images[0].Filename)
	assert.Equal(t, "two.png", images[1].Filename)

	_, err = f.svc.SubmitUploads(ctx, "p", "", []Upload{{Filename: "notes.txt", Data: []byte("plain text")}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmitTemplateDedupsCallerImages(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()
	t1 := f.upload(t, "t1.png", color.RGBA{R: 10, A: 255})
	t2 := f.upload(t, "t2.png", color.RGBA{R: 20, A: 255})
	u1 := f.upload(t, "u1.png", color.RGBA{R: 30, A: 255})

	tmpl, err := f.templates.Create(ctx, library.TemplateInput{Name: "n", Prompt: "template prompt", AspectRatio: "9:16", ImageIDs: []string{t1.ID, t2.ID}})
	require.NoError(t, err)

	g, err := f.svc.SubmitTemplate(ctx, TemplateSubmitRequest{TemplateID: tmpl.ID, ImageIDs: []string{u1.ID, t2.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{u1.ID, t2.ID, t1.ID}, g.SourceImageIDs)
	assert.Equal(t, "template prompt", g.Prompt)
	assert.Equal(t, "9:16", g.AspectRatio)

	override := "override"
	g, err = f.svc.SubmitTemplate(ctx, TemplateSubmitRequest{TemplateID: tmpl.ID, Prompt: &override})
	require.NoError(t, err)
	assert.Equal(t, "override", g.Prompt)
	assert.Equal(t, []string{t1.ID, t2.ID}, g.SourceImageIDs)

	_, err = f.svc.SubmitTemplate(ctx, TemplateSubmitRequest{TemplateID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitTemplateUploadsAppendsTemplateImages(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()
	t1 := f.upload(t, "t1.png", color.RGBA{B: 10, A: 255})
	tmpl, err := f.templates.Create(ctx, library.TemplateInput{Name: "n", Prompt: "p", ImageIDs: []string{t1.ID}})
	require.NoError(t, err)

	g, err := f.svc.SubmitTemplateUploads(ctx, tmpl.ID, nil, nil, []Upload{{Filename: "x.png", Data: pngBytes(t, color.White)}})
	require.NoError(t, err)
	require.Len(t, g.SourceImageIDs, 2)
	assert.Equal(t, t1.ID, g.SourceImageIDs[1])
	assert.NotEqual(t, t1.ID, g.SourceImageIDs[0])
}

func TestSubmitTemplateSkipsDeletedTemplateImages(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()
	t1 := f.upload(t, "t1.png", color.RGBA{B: 1, A: 255})
	t2 := f.upload(t, "t2.png", color.RGBA{B: 2, A: 255})
	tmpl, err := f.templates.Create(ctx, library.TemplateInput{Name: "n", Prompt: "p", ImageIDs: []string{t1.ID, t2.ID}})
	require.NoError(t, err)
	require.NoError(t, f.images.Delete(ctx, t1.ID))

	g, err := f.svc.SubmitTemplate(ctx, TemplateSubmitRequest{TemplateID: tmpl.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{t2.ID}, g.SourceImageIDs)
}

func TestSubmitWhenQueueRejectsReturnsFailedRecord(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	f.svc.queue = failingQueue{err: domain.ErrQueueFull}

	g, err := f.svc.SubmitByIDs(context.Background(), SubmitRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationFailed, g.Status())
}

func TestDeleteGenerationRemovesBinaryOutputOnly(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()
	src := f.upload(t, "src.png", color.White)

	g, err := f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: "p", ImageIDs: []string{src.ID}})
	require.NoError(t, err)
	stored, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	output := *stored.Output

	require.NoError(t, f.svc.Delete(ctx, g.ID))
	_, err = f.store.Read(ctx, output)
	assert.True(t, errors.Is(err, storage.ErrNotExist))

	_, err = f.store.Read(ctx, src.StorageRef)
	assert.NoError(t, err, "source images are never deleted with a generation")
	_, err = f.images.Get(ctx, src.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, g.ID), domain.ErrNotFound)
}

func TestDeleteGenerationKeepsTextOutputByDefault(t *testing.T) {
	for _, deleteText := range []bool{false, true} {
		f := newServiceFixture(t, ServiceOptions{DeleteTextOutputs: deleteText})
		f.model.resp = &Response{Text: "a poem"}
		ctx := context.Background()

		g, err := f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: "p"})
		require.NoError(t, err)
		stored, err := f.svc.Get(ctx, g.ID)
		require.NoError(t, err)
		require.True(t, domain.IsTextOutput(*stored.Output))

		require.NoError(t, f.svc.Delete(ctx, g.ID))
		_, err = f.store.Read(ctx, *stored.Output)
		if deleteText {
			assert.ErrorIs(t, err, storage.ErrNotExist)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestDeleteFailedGenerationTouchesNoArtifact(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	f.model.err = errors.New("down")
	f.model.resp = nil
	ctx := context.Background()

	g, err := f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: "p"})
	require.NoError(t, err)
	stored, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutputFailed, *stored.Output)
	require.NoError(t, f.svc.Delete(ctx, g.ID))
}

func TestDeletingImageKeepsGenerationSources(t *testing.T) {
	f := newServiceFixture(t, ServiceOptions{})
	ctx := context.Background()
	src := f.upload(t, "src.png", color.White)

	g, err := f.svc.SubmitByIDs(ctx, SubmitRequest{Prompt: "p", ImageIDs: []string{src.ID}})
	require.NoError(t, err)
	require.NoError(t, f.images.Delete(ctx, src.ID))

	stored, err := f.svc.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{src.ID}, stored.SourceImageIDs)
	require.NotNil(t, stored.SourceImageID)
	assert.Equal(t, src.ID, *stored.SourceImageID)
}
