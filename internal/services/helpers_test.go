package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/axellelanca/magiccode/internal/database"
	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/repository"
)

type fixture struct {
	records  *repository.GormRecordRepository
	accounts *repository.GormAccountRepository
	assets   *recordingAssets
	owner    *models.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	f := &fixture{
		records:  repository.NewRecordRepository(db),
		accounts: repository.NewAccountRepository(db),
		assets:   &recordingAssets{},
	}
	f.owner = f.account(t, "owner@example.com", true)
	return f
}

func (f *fixture) account(t *testing.T, email string, active bool) *models.Account {
	t.Helper()
	acc := &models.Account{FullName: email, Email: email, IsActive: active}
	require.NoError(t, f.accounts.CreateAccount(context.Background(), acc))
	return acc
}

// recordingAssets remembers which paths were released or scheduled for removal.
type recordingAssets struct {
	mu       sync.Mutex
	removed  []string
	released []string
}

func (a *recordingAssets) ScheduleRemoval(p string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removed = append(a.removed, p)
}

func (a *recordingAssets) Release(p string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released = append(a.released, p)
}

func (a *recordingAssets) Removed() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.removed...)
}

func (a *recordingAssets) Released() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.released...)
}

// sequenceGenerator hands out codes in order and repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++
	return g.codes[i], nil
}

func urlInput(u string) RecordInput {
	return RecordInput{Variant: models.VariantURL, URL: u, Display: models.Display{Name: "link"}}
}

func textInput(s string) RecordInput {
	return RecordInput{Variant: models.VariantText, Text: s, Display: models.Display{Name: "note"}}
}

func mediaInput(p string) RecordInput {
	return RecordInput{Variant: models.VariantMedia, MediaPath: p, Display: models.Display{Name: "photo"}}
}
