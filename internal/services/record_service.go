// Package services contains the business logic of the Magic Code engine.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/repository"
	"github.com/axellelanca/magiccode/internal/shortcode"
)

const maxCodeAttempts = 5

var urlScheme = regexp.MustCompile(`(?i)^https?://`)

// AssetScheduler is the part of the asset manager the workflow relies on.
type AssetScheduler interface {
	ScheduleRemoval(path string)
	Release(path string)
}

// CodeInvalidator drops cached lookups of a code.
type CodeInvalidator interface {
	Invalidate(code string)
}

// RecordInput carries everything a caller may set on a Magic Code.
// MediaPath is the relative path of a file uploaded with this request, if any.
type RecordInput struct {
	Variant   models.Variant `json:"type"`
	URL       string         `json:"url"`
	Text      string         `json:"text"`
	MediaPath string         `json:"media_path"`
	Display   models.Display `json:"display"`
}

// Validate checks the input against its variant.
func (in RecordInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Variant,
			validation.Required.Error("type is required"),
			validation.In(models.VariantURL, models.VariantMedia, models.VariantText).Error("type must be url, media or text"),
		),
		validation.Field(&in.URL,
			validation.When(in.Variant == models.VariantURL,
				validation.Required.Error("Url is missing"),
				validation.Match(urlScheme).Error("URL must begin with 'http://' or 'https://'."),
			),
		),
		validation.Field(&in.Text,
			validation.When(in.Variant == models.VariantText, validation.Required.Error("Text content is missing")),
		),
		validation.Field(&in.MediaPath,
			validation.When(in.Variant == models.VariantMedia, validation.Required.Error("Media file is missing")),
		),
	)
	if err == nil {
		err = validation.ValidateStruct(&in.Display,
			validation.Field(&in.Display.Name, validation.Required.Error("Name is required")),
		)
	}
	return toValidationError(err)
}

func (in RecordInput) payload() models.Payload {
	switch in.Variant {
	case models.VariantURL:
		return models.URLPayload{URL: in.URL}
	case models.VariantMedia:
		return models.MediaPayload{Path: in.MediaPath}
	default:
		return models.TextPayload{Text: in.Text}
	}
}

// RecordPage is one page of an owner's codes.
type RecordPage struct {
	Records    []models.Record `json:"records"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// RecordService handles every write to Magic Codes and the owner's reads.
type RecordService struct {
	records  repository.RecordRepository
	accounts repository.AccountRepository
	codes    shortcode.Generator
	assets   AssetScheduler
	cache    CodeInvalidator
	reserved map[string]struct{}
}

// NewRecordService crée et retourne une nouvelle instance de RecordService.
// cache may be nil.
func NewRecordService(records repository.RecordRepository, accounts repository.AccountRepository,
	codes shortcode.Generator, assets AssetScheduler, cache CodeInvalidator) *RecordService {
	return &RecordService{
		records:  records,
		accounts: accounts,
		codes:    codes,
		assets:   assets,
		cache:    cache,
	}
}

// ReserveCodes keeps names that are served by other routes from ever being
// handed out as codes. It must be called before the service is shared.
func (s *RecordService) ReserveCodes(names ...string) {
	if s.reserved == nil {
		s.reserved = make(map[string]struct{}, len(names))
	}
	for _, name := range names {
		s.reserved[name] = struct{}{}
	}
}

// CreateRecord validates input and stores a new record under a freshly
// reserved code. An uploaded file is removed again if creation fails.
func (s *RecordService) CreateRecord(ctx context.Context, ownerID uint, in RecordInput) (*models.Record, error) {
	record, err := s.createRecord(ctx, ownerID, in)
	if err != nil {
		s.discard(in.MediaPath)
		return nil, err
	}
	s.settle(in, record)
	return record, nil
}

func (s *RecordService) createRecord(ctx context.Context, ownerID uint, in RecordInput) (*models.Record, error) {
	if err := s.requireActive(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	record := &models.Record{OwnerID: ownerID, Display: in.Display}
	record.SetPayload(in.payload())

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		if _, ok := s.reserved[code]; ok {
			log.Warn().Str("code", code).Int("attempt", attempt).Msg("Short code is a reserved path, retrying")
			continue
		}

		taken, err := s.records.CodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("database error checking short code uniqueness: %w", err)
		}
		if taken {
			log.Warn().Str("code", code).Int("attempt", attempt).Int("max", maxCodeAttempts).Msg("Short code already exists, retrying")
			continue
		}

		record.ID = 0
		record.Code = code
		err = s.records.Create(ctx, record)
		if err == nil {
			log.Info().Uint("record_id", record.ID).Str("code", code).Str("variant", string(record.Variant)).Msg("Magic Code created")
			return record, nil
		}
		if !errors.Is(err, customerrors.ErrDuplicateCode) {
			return nil, fmt.Errorf("failed to create record: %w", err)
		}
		log.Warn().Str("code", code).Int("attempt", attempt).Int("max", maxCodeAttempts).Msg("Short code taken during insert, retrying")
	}

	log.Error().Uint("owner_id", ownerID).Int("attempts", maxCodeAttempts).Msg("Could not reserve a unique short code")
	return nil, customerrors.ErrExhaustedKeyspace
}

// UpdateRecord replaces the variant, payload and display settings of a record
// the caller owns. A media update without a new upload keeps the current file.
func (s *RecordService) UpdateRecord(ctx context.Context, ownerID uint, code string, in RecordInput) (*models.Record, error) {
	uploaded := in.MediaPath
	record, previous, err := s.updateRecord(ctx, ownerID, code, in)
	if err != nil {
		s.discard(uploaded)
		return nil, err
	}

	s.invalidate(record.Code)
	if uploaded != "" {
		in.MediaPath = uploaded
		s.settle(in, record)
	}
	if current, _ := record.CurrentMediaPath(); previous != "" && previous != current {
		s.assets.ScheduleRemoval(previous)
	}
	return record, nil
}

func (s *RecordService) updateRecord(ctx context.Context, ownerID uint, code string, in RecordInput) (*models.Record, string, error) {
	if err := s.requireActive(ctx, ownerID); err != nil {
		return nil, "", err
	}
	if !shortcode.Valid(code) {
		return nil, "", customerrors.ErrNotFound
	}

	record, err := s.records.FindByCodeAndOwner(ctx, code, ownerID)
	if err != nil {
		return nil, "", err
	}
	previous, _ := record.CurrentMediaPath()

	if in.Variant == models.VariantMedia && in.MediaPath == "" {
		in.MediaPath = previous
	}
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	record.SetPayload(in.payload())
	record.Display = in.Display

	if err := s.records.Update(ctx, record); err != nil {
		if errors.Is(err, customerrors.ErrConcurrentUpdate) {
			log.Warn().Str("code", code).Msg("Concurrent update lost")
		}
		return nil, "", err
	}
	log.Info().Uint("record_id", record.ID).Str("code", code).Str("variant", string(record.Variant)).Msg("Magic Code updated")
	return record, previous, nil
}

// DeleteRecord removes a record the caller owns and schedules its media file
// for removal.
func (s *RecordService) DeleteRecord(ctx context.Context, ownerID, id uint) error {
	if err := s.requireActive(ctx, ownerID); err != nil {
		return err
	}

	deleted, err := s.records.DeleteByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return err
	}
	s.invalidate(deleted.Code)

	if p, ok := deleted.CurrentMediaPath(); ok {
		s.assets.ScheduleRemoval(p)
	}
	log.Info().Uint("record_id", id).Str("code", deleted.Code).Msg("Magic Code deleted")
	return nil
}

// GetForEdit returns a record the caller owns.
func (s *RecordService) GetForEdit(ctx context.Context, ownerID uint, code string) (*models.Record, error) {
	if !shortcode.Valid(code) {
		return nil, customerrors.ErrNotFound
	}
	return s.records.FindByCodeAndOwner(ctx, code, ownerID)
}

// ListByOwner returns one page of the caller's records, newest first.
func (s *RecordService) ListByOwner(ctx context.Context, ownerID uint, page, pageSize int) (*RecordPage, error) {
	page, pageSize = pageBounds(page, pageSize)
	records, total, err := s.records.FindByOwnerPaged(ctx, ownerID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &RecordPage{
		Records:    records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func (s *RecordService) requireActive(ctx context.Context, ownerID uint) error {
	account, err := s.accounts.GetAccount(ctx, ownerID)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return customerrors.ErrAccountInactive
	}
	return nil
}

// settle hands a stored upload over to the record, or removes it when the
// record ended up with another variant.
func (s *RecordService) settle(in RecordInput, record *models.Record) {
	if in.MediaPath == "" {
		return
	}
	if current, ok := record.CurrentMediaPath(); ok && current == in.MediaPath {
		s.assets.Release(in.MediaPath)
		return
	}
	s.assets.ScheduleRemoval(in.MediaPath)
}

func (s *RecordService) discard(uploaded string) {
	if uploaded != "" {
		s.assets.ScheduleRemoval(uploaded)
	}
}

func (s *RecordService) invalidate(code string) {
	if s.cache != nil {
		s.cache.Invalidate(code)
	}
}

// toValidationError turns ozzo errors into a ValidationError on the first
// failing field, in field name order.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return customerrors.NewValidationError("", err.Error())
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if errs[f] != nil {
			return customerrors.NewValidationError(f, errs[f].Error())
		}
	}
	return nil
}

func pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
