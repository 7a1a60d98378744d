// Package item provides the PlayableItem domain entity.
package item

import "github.com/samber/lo"

// Item represents a single streamable unit with a resolved media URL.
// Immutable once constructed.
type Item struct {
	ID         string // Stable identifier, unique within a catalog
	Title      string // Track title
	ImageURL   string // Cover art URL
	AuthorName string // Artist display name
	AuthorID   string // Artist identifier
	StreamURL  string // Resolved, directly fetchable media URL
}

// Record is the shape of a track row as delivered by the catalog layer.
// The catalog is responsible for resolving StreamURL to a currently valid URL.
type Record struct {
	ID         string
	Title      string
	ImageURL   string
	StreamURL  string
	AuthorName string
	AuthorID   string
}

// FromRecord adapts a single catalog record into a playable item.
func FromRecord(r Record) Item {
	return Item{
		ID:         r.ID,
		Title:      r.Title,
		ImageURL:   r.ImageURL,
		AuthorName: r.AuthorName,
		AuthorID:   r.AuthorID,
		StreamURL:  r.StreamURL,
	}
}

// FromRecords adapts catalog records into playable items, preserving order.
func FromRecords(records []Record) []Item {
	return lo.Map(records, func(r Record, _ int) Item {
		return FromRecord(r)
	})
}

// IDs returns the item IDs in order.
func IDs(items []Item) []string {
	return lo.Map(items, func(it Item, _ int) string {
		return it.ID
	})
}
