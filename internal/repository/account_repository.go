package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/models"
)

// AccountRepository gives access to accounts.
type AccountRepository interface {
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	SetActive(ctx context.Context, id uint, active bool) (*models.Account, error)
	ListNonAdminPaged(ctx context.Context, page, pageSize int) ([]models.AccountSummary, int64, error)
}

// GormAccountRepository implements AccountRepository with GORM.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository crée et retourne une nouvelle instance de GormAccountRepository.
func NewAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

func (r *GormAccountRepository) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %d: %w", id, err)
	}
	return &account, nil
}

func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %s: %w", email, err)
	}
	return &account, nil
}

// CreateAccount inserts account. GORM skips zero values for columns with a
// default, so an inactive account is written in a second statement.
func (r *GormAccountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	active := account.IsActive
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("email %s already in use", account.Email)
			}
			return fmt.Errorf("failed to create account: %w", err)
		}
		if !active {
			if err := tx.Model(&models.Account{}).Where("id = ?", account.ID).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate account %d: %w", account.ID, err)
			}
			account.IsActive = false
		}
		return nil
	})
}

// SetActive updates the active flag and returns the updated account.
func (r *GormAccountRepository) SetActive(ctx context.Context, id uint, active bool) (*models.Account, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update account %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, customerrors.ErrAccountNotFound
	}
	return r.GetAccount(ctx, id)
}

// ListNonAdminPaged returns one page of non-admin accounts with their code counts.
func (r *GormAccountRepository) ListNonAdminPaged(ctx context.Context, page, pageSize int) ([]models.AccountSummary, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("role <> ?", models.RoleAdmin).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	var summaries []models.AccountSummary
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Select("accounts.*, COUNT(records.id) AS record_count").
		Joins("LEFT JOIN records ON records.owner_id = accounts.id").
		Where("accounts.role <> ?", models.RoleAdmin).
		Group("accounts.id").
		Order("accounts.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Scan(&summaries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}
	return summaries, total, nil
}
