package store

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Bilingual is a pair of strings keyed by language code.
type Bilingual struct {
	EN string `json:"en"`
	FA string `json:"fa"`
}

// Normalize trims both variants and converts them to NFC so Farsi input
// typed on different keyboards compares equal.
func (b Bilingual) Normalize() Bilingual {
	return Bilingual{
		EN: norm.NFC.String(strings.TrimSpace(b.EN)),
		FA: norm.NFC.String(strings.TrimSpace(b.FA)),
	}
}

// Complete reports whether both variants are non-blank.
func (b Bilingual) Complete() bool {
	return strings.TrimSpace(b.EN) != "" && strings.TrimSpace(b.FA) != ""
}

// Blank reports whether both variants are blank.
func (b Bilingual) Blank() bool {
	return strings.TrimSpace(b.EN) == "" && strings.TrimSpace(b.FA) == ""
}

// In returns the variant for lang ("fa" or anything else for English).
func (b Bilingual) In(lang string) string {
	if lang == "fa" && b.FA != "" {
		return b.FA
	}
	return b.EN
}

// BlogPost is a bilingual article.
type BlogPost struct {
	ID          string     `json:"id"`
	Title       Bilingual  `json:"title"`
	Description Bilingual  `json:"description"`
	Content     *Bilingual `json:"content,omitempty"`
	Category    string     `json:"category"`
	PublishDate time.Time  `json:"publishDate"`
	Author      *Bilingual `json:"author,omitempty"`
	MainImage   string     `json:"mainImage"`
	Images      []string   `json:"images"`
	Featured    bool       `json:"featured"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// EventType is the visual severity of an announcement.
type EventType string

const (
	EventInfo    EventType = "info"
	EventWarning EventType = "warning"
	EventSuccess EventType = "success"
	EventError   EventType = "error"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventInfo, EventWarning, EventSuccess, EventError:
		return true
	}
	return false
}

// Event is a time-bounded promotional announcement.
type Event struct {
	ID         string    `json:"id"`
	Title      Bilingual `json:"title"`
	Message    Bilingual `json:"message"`
	Type       EventType `json:"type"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	IsActive   bool      `json:"isActive"`
	Link       string    `json:"link,omitempty"`
	Icon       string    `json:"icon,omitempty"`
	Image      string    `json:"image,omitempty"`
	Priority   int       `json:"priority"`
	ClickCount int64     `json:"clickCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GalleryImage is one manually ordered gallery entry.
type GalleryImage struct {
	ID          string     `json:"id"`
	Title       Bilingual  `json:"title"`
	Description *Bilingual `json:"description,omitempty"`
	Image       string     `json:"image"`
	Order       int        `json:"order"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PostFilter narrows ListPosts.
type PostFilter struct {
	Category string
	Featured *bool
	Limit    int
	Offset   int
}

// EventFilter narrows ListEvents. With Current set, only active events whose
// window contains At are returned.
type EventFilter struct {
	Current bool
	At      time.Time
	Type    EventType
}

// GalleryFilter narrows ListGallery.
type GalleryFilter struct {
	ActiveOnly bool
}
