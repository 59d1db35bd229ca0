package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/repository"
)

func storeRecord(t *testing.T, f *fixture, code string, p models.Payload) *models.Record {
	t.Helper()
	rec := &models.Record{OwnerID: f.owner.ID, Code: code, Display: models.Display{Name: code}}
	rec.SetPayload(p)
	require.NoError(t, f.records.Create(context.Background(), rec))
	return rec
}

func TestResolve_Variants(t *testing.T) {
	f := newFixture(t)
	storeRecord(t, f, "url001", models.URLPayload{URL: "https://example.com/landing"})
	storeRecord(t, f, "med001", models.MediaPayload{Path: "uploads/pic.png"})
	storeRecord(t, f, "txt001", models.TextPayload{Text: "hello there"})

	r := NewResolver(f.records, "", 0, 0)
	ctx := context.Background()

	tests := []struct {
		code string
		want DispatchAction
	}{
		{"url001", DispatchAction{Kind: ActionRedirectExternal, Target: "https://example.com/landing"}},
		{"med001", DispatchAction{Kind: ActionRedirectAsset, Target: "http://localhost:8080/uploads/pic.png"}},
		{"txt001", DispatchAction{Kind: ActionRenderInline, Content: "hello there"}},
		{"zzz999", DispatchAction{Kind: ActionNotFound}},
		{"bad", DispatchAction{Kind: ActionNotFound}},
		{"../etc", DispatchAction{Kind: ActionNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.code, "http://localhost:8080/")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_BaseURLWins(t *testing.T) {
	f := newFixture(t)
	storeRecord(t, f, "med002", models.MediaPayload{Path: "uploads/doc.pdf"})

	r := NewResolver(f.records, "https://codes.example/", 0, 0)
	got, err := r.Resolve(context.Background(), "med002", "http://internal:8080")
	require.NoError(t, err)
	assert.Equal(t, "https://codes.example/uploads/doc.pdf", got.Target)
}

func TestResolve_InvalidVariant(t *testing.T) {
	f := newFixture(t)
	rec := storeRecord(t, f, "inv001", models.TextPayload{Text: "x"})

	// A record whose variant column disagrees with its payload columns.
	rec.Variant = models.VariantURL
	require.NoError(t, f.records.Update(context.Background(), rec))

	r := NewResolver(f.records, "", 0, 0)
	got, err := r.Resolve(context.Background(), "inv001", "http://localhost")
	require.NoError(t, err)
	assert.Equal(t, ActionInvalidVariant, got.Kind)
}

func TestResolve_CacheAndInvalidate(t *testing.T) {
	f := newFixture(t)
	rec := storeRecord(t, f, "cch001", models.TextPayload{Text: "before"})
	ctx := context.Background()

	r := NewResolver(f.records, "", 16, time.Minute)
	got, err := r.Resolve(ctx, "cch001", "")
	require.NoError(t, err)
	assert.Equal(t, "before", got.Content)

	rec.SetPayload(models.TextPayload{Text: "after"})
	require.NoError(t, f.records.Update(ctx, rec))

	got, err = r.Resolve(ctx, "cch001", "")
	require.NoError(t, err)
	assert.Equal(t, "before", got.Content, "cached until invalidated")

	r.Invalidate("cch001")
	got, err = r.Resolve(ctx, "cch001", "")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Content)
}

func TestResolve_WorkflowInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := NewResolver(f.records, "", 16, time.Minute)
	svc := NewRecordService(f.records, f.accounts, &sequenceGenerator{codes: []string{"wfl001"}}, f.assets, r)

	rec, err := svc.CreateRecord(ctx, f.owner.ID, urlInput("https://one.example"))
	require.NoError(t, err)

	got, err := r.Resolve(ctx, rec.Code, "")
	require.NoError(t, err)
	assert.Equal(t, "https://one.example", got.Target)

	_, err = svc.UpdateRecord(ctx, f.owner.ID, rec.Code, urlInput("https://two.example"))
	require.NoError(t, err)
	got, err = r.Resolve(ctx, rec.Code, "")
	require.NoError(t, err)
	assert.Equal(t, "https://two.example", got.Target)

	require.NoError(t, svc.DeleteRecord(ctx, f.owner.ID, rec.ID))
	got, err = r.Resolve(ctx, rec.Code, "")
	require.NoError(t, err)
	assert.Equal(t, ActionNotFound, got.Kind)
}

// pausingRepo holds FindByCode after the read until release is closed.
type pausingRepo struct {
	*repository.GormRecordRepository
	read    chan struct{}
	release chan struct{}
}

func (p *pausingRepo) FindByCode(ctx context.Context, code string) (*models.Record, error) {
	rec, err := p.GormRecordRepository.FindByCode(ctx, code)
	if p.read != nil {
		close(p.read)
		p.read = nil
		<-p.release
	}
	return rec, err
}

func TestResolve_StaleReadDoesNotRefillCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := &pausingRepo{GormRecordRepository: f.records, read: make(chan struct{}), release: make(chan struct{})}
	read := repo.read
	r := NewResolver(repo, "", 16, time.Minute)
	svc := NewRecordService(f.records, f.accounts, &sequenceGenerator{codes: []string{"slw001"}}, f.assets, r)

	rec, err := svc.CreateRecord(ctx, f.owner.ID, urlInput("https://example.com"))
	require.NoError(t, err)

	done := make(chan DispatchAction)
	go func() {
		action, err := r.Resolve(ctx, rec.Code, "")
		assert.NoError(t, err)
		done <- action
	}()

	<-read
	require.NoError(t, svc.DeleteRecord(ctx, f.owner.ID, rec.ID))
	close(repo.release)
	assert.Equal(t, ActionRedirectExternal, (<-done).Kind)

	got, err := r.Resolve(ctx, rec.Code, "")
	require.NoError(t, err)
	assert.Equal(t, ActionNotFound, got.Kind)
}

type failingRepo struct {
	repository.RecordRepository
}

func (failingRepo) FindByCode(context.Context, string) (*models.Record, error) {
	return nil, errors.New("disk on fire")
}

func TestResolve_StoreError(t *testing.T) {
	r := NewResolver(failingRepo{}, "", 0, 0)
	_, err := r.Resolve(context.Background(), "abc123", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, customerrors.ErrNotFound)
}
