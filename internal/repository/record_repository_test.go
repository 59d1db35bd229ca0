package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/axellelanca/magiccode/internal/database"
	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func textRecord(owner uint, code, text string) *models.Record {
	r := &models.Record{OwnerID: owner, Code: code, Display: models.Display{Name: "n-" + code}}
	r.SetPayload(models.TextPayload{Text: text})
	return r
}

func TestRecordRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	rec := textRecord(1, "abc123", "hello")
	require.NoError(t, repo.Create(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.Equal(t, uint(1), rec.Version)

	got, err := repo.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, models.VariantText, got.Variant)
	require.NotNil(t, got.Text)
	assert.Equal(t, "hello", *got.Text)
	assert.Nil(t, got.URL)
	assert.Nil(t, got.MediaPath)

	exists, err := repo.CodeExists(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.CodeExists(ctx, "zzz999")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.FindByCode(ctx, "ABC123")
	assert.ErrorIs(t, err, customerrors.ErrNotFound, "codes are case-sensitive")
}

func TestRecordRepository_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	require.NoError(t, repo.Create(ctx, textRecord(1, "dup001", "a")))
	err := repo.Create(ctx, textRecord(2, "dup001", "b"))
	assert.ErrorIs(t, err, customerrors.ErrDuplicateCode)
}

func TestRecordRepository_OwnerScopedLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	rec := textRecord(1, "own001", "mine")
	require.NoError(t, repo.Create(ctx, rec))

	_, err := repo.FindByCodeAndOwner(ctx, "own001", 1)
	require.NoError(t, err)
	_, err = repo.FindByCodeAndOwner(ctx, "own001", 2)
	assert.ErrorIs(t, err, customerrors.ErrNotFound)

	_, err = repo.FindByIDAndOwner(ctx, rec.ID, 1)
	require.NoError(t, err)
	_, err = repo.FindByIDAndOwner(ctx, rec.ID, 2)
	assert.ErrorIs(t, err, customerrors.ErrNotFound)
}

func TestRecordRepository_UpdateVersionGuard(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	rec := textRecord(1, "ver001", "v1")
	require.NoError(t, repo.Create(ctx, rec))

	first, err := repo.FindByCode(ctx, "ver001")
	require.NoError(t, err)
	second, err := repo.FindByCode(ctx, "ver001")
	require.NoError(t, err)

	first.SetPayload(models.URLPayload{URL: "https://example.com"})
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, uint(2), first.Version)

	second.SetPayload(models.TextPayload{Text: "stale"})
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, customerrors.ErrConcurrentUpdate)

	got, err := repo.FindByCode(ctx, "ver001")
	require.NoError(t, err)
	assert.Equal(t, models.VariantURL, got.Variant)
	require.NotNil(t, got.URL)
	assert.Equal(t, "https://example.com", *got.URL)
	assert.Nil(t, got.Text)
	assert.Equal(t, "ver001", got.Code)
}

func TestRecordRepository_DeleteByIDAndOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t))

	rec := &models.Record{OwnerID: 1, Code: "del001", Display: models.Display{Name: "media"}}
	rec.SetPayload(models.MediaPayload{Path: "uploads/x.png"})
	require.NoError(t, repo.Create(ctx, rec))

	_, err := repo.DeleteByIDAndOwner(ctx, rec.ID, 2)
	assert.ErrorIs(t, err, customerrors.ErrNotFound)

	paths, err := repo.MediaPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/x.png"}, paths)

	deleted, err := repo.DeleteByIDAndOwner(ctx, rec.ID, 1)
	require.NoError(t, err)
	path, ok := deleted.CurrentMediaPath()
	assert.True(t, ok)
	assert.Equal(t, "uploads/x.png", path)

	_, err = repo.FindByCode(ctx, "del001")
	assert.ErrorIs(t, err, customerrors.ErrNotFound)

	_, err = repo.DeleteByIDAndOwner(ctx, rec.ID, 1)
	assert.ErrorIs(t, err, customerrors.ErrNotFound)
}

func TestRecordRepository_FindByOwnerPaged(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRecordRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		rec := textRecord(1, fmt.Sprintf("pag%03d", i), "t")
		require.NoError(t, repo.Create(ctx, rec))
		require.NoError(t, db.Model(rec).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
	require.NoError(t, repo.Create(ctx, textRecord(2, "other1", "t")))

	page1, total, err := repo.FindByOwnerPaged(ctx, 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, page1, 3)
	assert.Equal(t, "pag006", page1[0].Code)

	page3, _, err := repo.FindByOwnerPaged(ctx, 1, 3, 3)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "pag000", page3[0].Code)

	count, err := repo.CountByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}
