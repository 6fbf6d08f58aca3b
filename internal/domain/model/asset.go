package model

import (
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Kind is the declared kind of a media asset.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "tv"
	KindAudio  Kind = "audio"
	KindCourse Kind = "course"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindMovie, KindSeries, KindAudio, KindCourse:
		return true
	default:
		return false
	}
}

// Family returns the media family the kind is encoded as.
func (k Kind) Family() Family {
	if k == KindAudio {
		return FamilyAudio
	}
	return FamilyVideo
}

func (k Kind) String() string {
	return string(k)
}

// Family is the closed set of encodings the pipeline knows how to produce.
type Family string

const (
	FamilyVideo Family = "video"
	FamilyAudio Family = "audio"
)

func (f Family) String() string {
	return string(f)
}

// AccessTier gates who may play an asset.
type AccessTier string

const (
	AccessStandard AccessTier = "standard"
	AccessPremium  AccessTier = "premium"
)

// TierFromPremium maps the upload form's premium flag to an access tier.
func TierFromPremium(premium bool) AccessTier {
	if premium {
		return AccessPremium
	}
	return AccessStandard
}

// MediaAsset is the published description of one piece of media.
// It is written to the content store only after every rendition is in place.
type MediaAsset struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Kind            Kind       `json:"type"`
	Languages       []string   `json:"languages"`
	Renditions      []string   `json:"qualities"`
	AccessTier      AccessTier `json:"access_tier"`
	Premium         bool       `json:"premium"`
	CreatedAt       int64      `json:"created_at"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	Thumbnail       string     `json:"thumbnail,omitempty"`
}

var (
	ErrEmptyTitle         = errors.New("title cannot be empty")
	ErrTitleTooLong       = errors.New("title exceeds maximum length of 255 characters")
	ErrInvalidKind        = errors.New("invalid media kind")
	ErrNoRenditions       = errors.New("asset has no renditions")
	ErrInvalidLanguageTag = errors.New("invalid language tag")
)

const (
	maxTitleLength  = 255
	DefaultTitle    = "Untitled"
	DefaultLanguage = "en"
)

// NewMediaAsset creates an unpublished asset with a fresh id.
// An empty title falls back to DefaultTitle and empty languages to DefaultLanguage.
func NewMediaAsset(title string, kind Kind, tier AccessTier, languages []string) (*MediaAsset, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if len(title) > maxTitleLength {
		return nil, ErrTitleTooLong
	}
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	langs, err := NormalizeLanguages(languages)
	if err != nil {
		return nil, err
	}
	if tier != AccessPremium {
		tier = AccessStandard
	}

	return &MediaAsset{
		ID:         uuid.New(),
		Title:      title,
		Kind:       kind,
		Languages:  langs,
		AccessTier: tier,
		Premium:    tier == AccessPremium,
	}, nil
}

// NormalizeLanguages trims, lowercases and de-duplicates tags while keeping
// their order, so the first tag stays the default language.
func NormalizeLanguages(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if !isLanguageTag(tag) {
			return nil, ErrInvalidLanguageTag
		}
		if !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultLanguage)
	}
	return out, nil
}

func isLanguageTag(tag string) bool {
	if len(tag) > 35 {
		return false
	}
	for _, r := range tag {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

// Publish records the renditions that were placed in the store.
func (a *MediaAsset) Publish(renditions []string, createdAt int64) error {
	if len(renditions) == 0 {
		return ErrNoRenditions
	}
	a.Renditions = slices.Clone(renditions)
	a.CreatedAt = createdAt
	return nil
}

// Family returns the media family of the asset.
func (a *MediaAsset) Family() Family {
	return a.Kind.Family()
}

// HasRendition reports whether the given rendition label was published.
func (a *MediaAsset) HasRendition(label string) bool {
	return slices.Contains(a.Renditions, label)
}

// DefaultLanguage returns the first language tag.
func (a *MediaAsset) DefaultLanguage() string {
	if len(a.Languages) == 0 {
		return DefaultLanguage
	}
	return a.Languages[0]
}

// SetDuration sets the probed duration.
func (a *MediaAsset) SetDuration(seconds float64) {
	a.DurationSeconds = &seconds
}

// Clone returns a copy of a that shares no memory with it.
func (a *MediaAsset) Clone() *MediaAsset {
	c := *a
	c.Languages = slices.Clone(a.Languages)
	c.Renditions = slices.Clone(a.Renditions)
	if a.DurationSeconds != nil {
		d := *a.DurationSeconds
		c.DurationSeconds = &d
	}
	return &c
}
