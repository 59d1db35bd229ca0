package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	customerrors "github.com/axellelanca/magiccode/internal/errors"
	"github.com/axellelanca/magiccode/internal/models"
	"github.com/axellelanca/magiccode/internal/repository"
	"github.com/axellelanca/magiccode/internal/shortcode"
)

var resolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "magiccode_resolutions_total",
		Help: "Public code resolutions, by outcome.",
	},
	[]string{"outcome"},
)

// ActionKind tells the HTTP layer what to do with a resolved code.
type ActionKind int

const (
	ActionNotFound ActionKind = iota
	ActionRedirectExternal
	ActionRedirectAsset
	ActionRenderInline
	ActionInvalidVariant
)

func (k ActionKind) String() string {
	switch k {
	case ActionNotFound:
		return "not_found"
	case ActionRedirectExternal:
		return "redirect_external"
	case ActionRedirectAsset:
		return "redirect_asset"
	case ActionRenderInline:
		return "render_inline"
	case ActionInvalidVariant:
		return "invalid_variant"
	}
	return "unknown"
}

// DispatchAction is the outcome of resolving a code. Target holds the
// redirect location; Content holds inline text.
type DispatchAction struct {
	Kind    ActionKind
	Target  string
	Content string
}

// Resolver turns public codes into dispatch actions. It never writes.
type Resolver struct {
	records repository.RecordRepository
	baseURL string
	cache   *expirable.LRU[string, *models.Record]

	// epoch counts invalidations. A lookup that saw an older epoch must not
	// fill the cache.
	mu    sync.Mutex
	epoch uint64
}

// NewResolver creates a Resolver. baseURL is the public origin used for
// asset redirects; when empty the caller's origin is used. A cacheSize of
// zero disables caching.
func NewResolver(records repository.RecordRepository, baseURL string, cacheSize int, cacheTTL time.Duration) *Resolver {
	r := &Resolver{
		records: records,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if cacheSize > 0 && cacheTTL > 0 {
		r.cache = expirable.NewLRU[string, *models.Record](cacheSize, nil, cacheTTL)
	}
	return r
}

// Resolve looks up code and decides how to serve it. requestOrigin
// ("scheme://host") is used for asset redirects when no base URL is configured.
func (r *Resolver) Resolve(ctx context.Context, code, requestOrigin string) (DispatchAction, error) {
	if !shortcode.Valid(code) {
		resolutionsTotal.WithLabelValues(ActionNotFound.String()).Inc()
		return DispatchAction{Kind: ActionNotFound}, nil
	}

	record, err := r.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, customerrors.ErrNotFound) {
			resolutionsTotal.WithLabelValues(ActionNotFound.String()).Inc()
			return DispatchAction{Kind: ActionNotFound}, nil
		}
		return DispatchAction{}, fmt.Errorf("failed to resolve code %s: %w", code, err)
	}

	action := r.dispatch(record, requestOrigin)
	resolutionsTotal.WithLabelValues(action.Kind.String()).Inc()
	return action, nil
}

// Invalidate drops code from the cache after it was changed or deleted.
func (r *Resolver) Invalidate(code string) {
	if r.cache == nil {
		return
	}
	r.mu.Lock()
	r.epoch++
	r.cache.Remove(code)
	r.mu.Unlock()
}

func (r *Resolver) lookup(ctx context.Context, code string) (*models.Record, error) {
	if r.cache == nil {
		return r.records.FindByCode(ctx, code)
	}
	if rec, ok := r.cache.Get(code); ok {
		return rec, nil
	}

	r.mu.Lock()
	seen := r.epoch
	r.mu.Unlock()

	rec, err := r.records.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.epoch == seen {
		r.cache.Add(code, rec)
	}
	r.mu.Unlock()
	return rec, nil
}

func (r *Resolver) dispatch(record *models.Record, requestOrigin string) DispatchAction {
	payload, err := record.Payload()
	if err != nil {
		log.Error().
			Uint("record_id", record.ID).
			Str("code", record.Code).
			Str("variant", string(record.Variant)).
			Msg("Record has no usable payload for its variant")
		return DispatchAction{Kind: ActionInvalidVariant}
	}

	switch p := payload.(type) {
	case models.URLPayload:
		return DispatchAction{Kind: ActionRedirectExternal, Target: p.URL}
	case models.MediaPayload:
		return DispatchAction{Kind: ActionRedirectAsset, Target: joinAssetURL(r.originFor(requestOrigin), p.Path)}
	case models.TextPayload:
		return DispatchAction{Kind: ActionRenderInline, Content: p.Text}
	}
	return DispatchAction{Kind: ActionInvalidVariant}
}

func (r *Resolver) originFor(requestOrigin string) string {
	if r.baseURL != "" {
		return r.baseURL
	}
	return strings.TrimRight(requestOrigin, "/")
}

func joinAssetURL(origin, relPath string) string {
	return origin + "/" + strings.TrimLeft(relPath, "/")
}
