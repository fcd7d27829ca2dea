package template

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/photolangage/photolangage/internal/domain/template"
)

type fakeRepo struct {
	templates map[string]domain.Template
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{templates: make(map[string]domain.Template)}
}

func (r *fakeRepo) List(context.Context) ([]domain.Template, error) {
	out := make([]domain.Template, 0, len(r.templates))
	for _, tpl := range r.templates {
		out = append(out, tpl)
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*domain.Template, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tpl, nil
}

func (r *fakeRepo) Save(_ context.Context, tpl *domain.Template) error {
	r.templates[tpl.ID] = *tpl
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.templates[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

func newTestService(repo domain.Repository) *Service {
	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestList_MergesSystemTemplates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Save(ctx, domain.Template{Title: "Perso", Question: "Q"})
	require.NoError(t, err)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1+len(domain.SystemTemplates()))
	assert.False(t, all[0].IsSystem, "custom templates listed first")
}

func TestSave_SystemTemplateBecomesCustomCopy(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	sys := domain.SystemTemplates()[0]
	saved, err := svc.Save(context.Background(), sys)
	require.NoError(t, err)

	assert.NotEqual(t, sys.ID, saved.ID)
	assert.False(t, saved.IsSystem)
	_, persistedUnderSystemID := repo.templates[sys.ID]
	assert.False(t, persistedUnderSystemID, "system template must not be persisted under its own id")
}

func TestDelete_SystemTemplateRejected(t *testing.T) {
	svc := newTestService(newFakeRepo())
	err := svc.Delete(context.Background(), domain.SystemTemplates()[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToggleArchive_RoundTrip(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.Save(ctx, domain.Template{Title: "Perso", Question: "Q"})
	require.NoError(t, err)

	archived, err := svc.ToggleArchive(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)
	assert.Equal(t, "2026-08-31T10:00:00Z", archived.ArchiveDate)

	active, err := svc.ToggleArchive(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, active.Archived)
	assert.Empty(t, active.ArchiveDate)
}

func TestToggleArchive_Missing(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.ToggleArchive(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
