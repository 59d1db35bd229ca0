package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/repository"
)

// IdentifierCodec turns account ids into opaque tokens and back.
type IdentifierCodec interface {
	Encrypt(id uint) string
	Decrypt(token string) (uint, error)
}

// AccountView is an account as shown to administrators: its id only ever
// leaves the service as a token.
type AccountView struct {
	Token string `json:"token"`
	models.AccountSummary
}

// AccountPage is one page of the admin account listing.
type AccountPage struct {
	Accounts   []AccountView `json:"accounts"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// AdminRecordView is a code as listed to administrators. It carries no
// database ids.
type AdminRecordView struct {
	Name    string         `json:"qrName"`
	Variant models.Variant `json:"type"`
	Code    string         `json:"code"`
	URL     *string        `json:"url,omitempty"`
}

// AdminRecordPage is one page of an account's codes in the admin view.
type AdminRecordPage struct {
	Records    []AdminRecordView `json:"records"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// AdminService backs the administrator dashboard.
type AdminService struct {
	accounts repository.AccountRepository
	records  repository.RecordRepository
	ids      IdentifierCodec
}

func NewAdminService(accounts repository.AccountRepository, records repository.RecordRepository, ids IdentifierCodec) *AdminService {
	return &AdminService{accounts: accounts, records: records, ids: ids}
}

// ListAccounts returns non-admin accounts with their code counts.
func (s *AdminService) ListAccounts(ctx context.Context, page, pageSize int) (*AccountPage, error) {
	page, pageSize = pageBounds(page, pageSize)
	summaries, total, err := s.accounts.ListNonAdminPaged(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	views := make([]AccountView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, AccountView{Token: s.ids.Encrypt(summary.ID), AccountSummary: summary})
	}
	return &AccountPage{
		Accounts:   views,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// ResolveAccount returns the account a token stands for.
func (s *AdminService) ResolveAccount(ctx context.Context, token string) (*AccountView, error) {
	id, err := s.ids.Decrypt(token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.records.CountByOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AccountView{
		Token:          token,
		AccountSummary: models.AccountSummary{Account: *account, RecordCount: count},
	}, nil
}

// SetActive enables or disables the account behind token.
func (s *AdminService) SetActive(ctx context.Context, token string, active bool) (*models.Account, error) {
	id, err := s.ids.Decrypt(token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	log.Info().Str("account", token).Bool("is_active", active).Msg("Account status updated")
	return account, nil
}

// ListAccountRecords returns one page of the codes owned by the account behind token.
func (s *AdminService) ListAccountRecords(ctx context.Context, token string, page, pageSize int) (*AdminRecordPage, error) {
	id, err := s.ids.Decrypt(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetAccount(ctx, id); err != nil {
		return nil, err
	}

	page, pageSize = pageBounds(page, pageSize)
	records, total, err := s.records.FindByOwnerPaged(ctx, id, page, pageSize)
	if err != nil {
		return nil, err
	}
	views := make([]AdminRecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, AdminRecordView{Name: rec.Display.Name, Variant: rec.Variant, Code: rec.Code, URL: rec.URL})
	}
	return &AdminRecordPage{
		Records:    views,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
