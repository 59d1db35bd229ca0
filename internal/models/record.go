package models

import (
	"errors"
	"time"
)

// Variant is the kind of payload a Record carries.
type Variant string

const (
	VariantURL   Variant = "url"
	VariantMedia Variant = "media"
	VariantText  Variant = "text"
)

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantURL, VariantMedia, VariantText:
		return true
	}
	return false
}

// ErrEmptyPayload is returned by Record.Payload when the column matching the
// variant is empty, or the variant is unknown.
var ErrEmptyPayload = errors.New("record has no payload for its variant")

// Payload is the content a code resolves to. Exactly one implementation is
// stored per record.
type Payload interface {
	Variant() Variant
	isPayload()
}

// URLPayload redirects to an external http(s) address.
type URLPayload struct {
	URL string
}

// MediaPayload points at an uploaded file, relative to the serving root.
type MediaPayload struct {
	Path string
}

// TextPayload is rendered inline.
type TextPayload struct {
	Text string
}

func (URLPayload) Variant() Variant   { return VariantURL }
func (MediaPayload) Variant() Variant { return VariantMedia }
func (TextPayload) Variant() Variant  { return VariantText }

func (URLPayload) isPayload()   {}
func (MediaPayload) isPayload() {}
func (TextPayload) isPayload()  {}

// Display holds the cosmetic settings of a code. It has no effect on resolution.
type Display struct {
	Name            string `gorm:"size:255;not null" json:"name"`
	DotColor        string `gorm:"size:32" json:"dot_color"`
	BackgroundColor string `gorm:"size:32" json:"background_color"`
	DotStyle        string `gorm:"size:32" json:"dot_style"`
	CornerStyle     string `gorm:"size:32" json:"corner_style"`
	ApplyGradient   string `gorm:"size:32" json:"apply_gradient"`
	Logo            string `gorm:"size:512" json:"logo"`
}

// Record représente un Magic Code dans la base de données.
// The three payload columns are nullable; SetPayload keeps exactly one populated.
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"index;not null" json:"owner_id"`
	Code      string    `gorm:"uniqueIndex;size:6;not null" json:"code"`
	Variant   Variant   `gorm:"size:16;not null" json:"type"`
	URL       *string   `json:"url"`
	MediaPath *string   `gorm:"size:512" json:"media_path"`
	Text      *string   `json:"text"`
	Display   Display   `gorm:"embedded" json:"display"`
	Version   uint      `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Payload returns the typed payload of the record.
func (r *Record) Payload() (Payload, error) {
	switch r.Variant {
	case VariantURL:
		if r.URL != nil && *r.URL != "" {
			return URLPayload{URL: *r.URL}, nil
		}
	case VariantMedia:
		if r.MediaPath != nil && *r.MediaPath != "" {
			return MediaPayload{Path: *r.MediaPath}, nil
		}
	case VariantText:
		if r.Text != nil && *r.Text != "" {
			return TextPayload{Text: *r.Text}, nil
		}
	}
	return nil, ErrEmptyPayload
}

// SetPayload stores p and clears the two other payload columns.
func (r *Record) SetPayload(p Payload) {
	r.URL, r.MediaPath, r.Text = nil, nil, nil
	switch v := p.(type) {
	case URLPayload:
		r.URL = &v.URL
	case MediaPayload:
		r.MediaPath = &v.Path
	case TextPayload:
		r.Text = &v.Text
	}
	r.Variant = p.Variant()
}

// CurrentMediaPath returns the media file of the record, if it has one.
func (r *Record) CurrentMediaPath() (string, bool) {
	if r.Variant != VariantMedia || r.MediaPath == nil || *r.MediaPath == "" {
		return "", false
	}
	return *r.MediaPath, true
}
