// Package entities contains domain entities used across the application.
package entities

import "time"

// ItemType distinguishes single words from multi-word phrases.
type ItemType string

const (
	ItemTypeWord   ItemType = "word"
	ItemTypePhrase ItemType = "phrase"
)

// Item is a teachable vocabulary unit. Items are owned by content administration
// and are read-only to the lesson engine.
type Item struct {
	ID         int64
	Type       ItemType
	Difficulty *string // optional difficulty tag
}

// TranslationPair holds the texts of one item in the learner's native and target languages.
type TranslationPair struct {
	ItemID     int64
	NativeText string
	TargetText string
}

// Language is an entry of the language catalog.
type Language struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// CuratedItem is an item the learner added to their own vocabulary list.
type CuratedItem struct {
	UserID  int64     `json:"-"`
	ItemID  int64     `json:"item_id"`
	AddedAt time.Time `json:"added_at"`
}
