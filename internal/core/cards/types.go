package cards

import (
	"time"

	"github.com/a506488043/custom-card/internal/cache"
)

// Card is the resolved preview for one URL.
type Card struct {
	ExpiresAt   time.Time `json:"expires_at"`
	URL         string    `json:"url"`
	URLHash     string    `json:"url_hash"`
	Title       string    `json:"title"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
}

// Fields holds the three displayable card fields. It is used both for
// metadata extracted from a page and for caller-supplied overrides.
type Fields struct {
	Title       string `json:"title"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// IsZero reports whether every field is empty.
func (f Fields) IsZero() bool {
	return f.Title == "" && f.Image == "" && f.Description == ""
}

// Over returns f with every non-empty field of overrides applied on top.
func (f Fields) Over(overrides Fields) Fields {
	if overrides.Title != "" {
		f.Title = overrides.Title
	}
	if overrides.Image != "" {
		f.Image = overrides.Image
	}
	if overrides.Description != "" {
		f.Description = overrides.Description
	}
	return f
}

// Fields returns the card's displayable fields.
func (c *Card) Fields() Fields {
	return Fields{Title: c.Title, Image: c.Image, Description: c.Description}
}

func (c *Card) payload() cache.Payload {
	return cache.Payload{
		Title:       c.Title,
		Image:       c.Image,
		Description: c.Description,
		ExpiresAt:   c.ExpiresAt,
	}
}

func cardFromPayload(url, urlHash string, p cache.Payload) *Card {
	return &Card{
		URL:         url,
		URLHash:     urlHash,
		Title:       p.Title,
		Image:       p.Image,
		Description: p.Description,
		ExpiresAt:   p.ExpiresAt,
	}
}

// withOverrides returns a copy of c with overrides applied.
func (c *Card) withOverrides(overrides Fields) *Card {
	merged := *c
	f := c.Fields().Over(overrides)
	merged.Title, merged.Image, merged.Description = f.Title, f.Image, f.Description
	return &merged
}

// ListOptions controls paginated browsing of stored cards.
type ListOptions struct {
	// Search is a case-insensitive substring matched against url, title and description.
	Search  string
	Page    int
	PerPage int
}

// ListResult is one page of stored cards.
type ListResult struct {
	Items   []*Card `json:"items"`
	Total   int     `json:"total"`
	Page    int     `json:"page"`
	PerPage int     `json:"per_page"`
}

// StoreStatus describes the persistent store.
type StoreStatus struct {
	Error     string `json:"error,omitempty"`
	Available bool   `json:"available"`
}

// Status is the service health snapshot exposed to administrators.
type Status struct {
	Breakers map[string]BreakerStats `json:"circuit_breakers"`
	Store    StoreStatus             `json:"store"`
	Cache    cache.Status            `json:"cache"`
}
