package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/models"
)

// RecordRepository est une interface qui définit les méthodes d'accès aux données
type RecordRepository interface {
	Create(ctx context.Context, record *models.Record) error
	FindByCode(ctx context.Context, code string) (*models.Record, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	FindByCodeAndOwner(ctx context.Context, code string, ownerID uint) (*models.Record, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Record, error)
	FindByOwnerPaged(ctx context.Context, ownerID uint, page, pageSize int) ([]models.Record, int64, error)
	Update(ctx context.Context, record *models.Record) error
	DeleteByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Record, error)
	MediaPaths(ctx context.Context) ([]string, error)
	CountByOwner(ctx context.Context, ownerID uint) (int64, error)
}

// GormRecordRepository est l'implémentation de RecordRepository utilisant GORM.
type GormRecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository crée et retourne une nouvelle instance de GormRecordRepository.
func NewRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// Create inserts a new record. A taken code yields customerrors.ErrDuplicateCode.
func (r *GormRecordRepository) Create(ctx context.Context, record *models.Record) error {
	if record.Version == 0 {
		record.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("code %s: %w", record.Code, customerrors.ErrDuplicateCode)
		}
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// FindByCode récupère un enregistrement en utilisant son code.
func (r *GormRecordRepository) FindByCode(ctx context.Context, code string) (*models.Record, error) {
	var record models.Record
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&record).Error; err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// CodeExists reports whether code is already assigned.
func (r *GormRecordRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Record{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check code %s: %w", code, err)
	}
	return count > 0, nil
}

// FindByCodeAndOwner returns the record only when ownerID owns it.
func (r *GormRecordRepository) FindByCodeAndOwner(ctx context.Context, code string, ownerID uint) (*models.Record, error) {
	var record models.Record
	if err := r.db.WithContext(ctx).Where("code = ? AND owner_id = ?", code, ownerID).First(&record).Error; err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// FindByIDAndOwner returns the record only when ownerID owns it.
func (r *GormRecordRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Record, error) {
	var record models.Record
	if err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&record).Error; err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// FindByOwnerPaged returns one page of an owner's records, newest first, and the total count.
func (r *GormRecordRepository) FindByOwnerPaged(ctx context.Context, ownerID uint, page, pageSize int) ([]models.Record, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	q := r.db.WithContext(ctx).Model(&models.Record{}).Where("owner_id = ?", ownerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count records for owner %d: %w", ownerID, err)
	}

	var records []models.Record
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records for owner %d: %w", ownerID, err)
	}
	return records, total, nil
}

// Update writes variant, payload and display fields in a single conditional
// statement guarded by the record version. Code, owner and creation time are
// never written. On success record.Version is advanced.
func (r *GormRecordRepository) Update(ctx context.Context, record *models.Record) error {
	d := record.Display
	res := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(map[string]interface{}{
			"variant":          record.Variant,
			"url":              record.URL,
			"media_path":       record.MediaPath,
			"text":             record.Text,
			"name":             d.Name,
			"dot_color":        d.DotColor,
			"background_color": d.BackgroundColor,
			"dot_style":        d.DotStyle,
			"corner_style":     d.CornerStyle,
			"apply_gradient":   d.ApplyGradient,
			"logo":             d.Logo,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update record %d: %w", record.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("record %d at version %d: %w", record.ID, record.Version, customerrors.ErrConcurrentUpdate)
	}
	record.Version++
	return nil
}

// DeleteByIDAndOwner removes the record if ownerID owns it and returns what was removed.
func (r *GormRecordRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint) (*models.Record, error) {
	var deleted models.Record
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&deleted).Error; err != nil {
			return notFound(err)
		}
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Record{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete record %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return customerrors.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// MediaPaths returns every media path currently referenced by a record.
func (r *GormRecordRepository) MediaPaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("variant = ? AND media_path IS NOT NULL", models.VariantMedia).
		Pluck("media_path", &paths).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list media paths: %w", err)
	}
	return paths, nil
}

// CountByOwner compte le nombre de codes pour un compte donné.
func (r *GormRecordRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Record{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count records for owner %d: %w", ownerID, err)
	}
	return count, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return customerrors.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}
