package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRecord(t *testing.T) {
	r := Record{
		ID:         "t1",
		Title:      "Blue in Green",
		ImageURL:   "https://img.example.com/t1.jpg",
		StreamURL:  "https://cdn.example.com/t1.mp3",
		AuthorName: "Miles Davis",
		AuthorID:   "a1",
	}

	it := FromRecord(r)

	assert.Equal(t, "t1", it.ID)
	assert.Equal(t, "Blue in Green", it.Title)
	assert.Equal(t, "https://img.example.com/t1.jpg", it.ImageURL)
	assert.Equal(t, "https://cdn.example.com/t1.mp3", it.StreamURL)
	assert.Equal(t, "Miles Davis", it.AuthorName)
	assert.Equal(t, "a1", it.AuthorID)
}

func TestFromRecords(t *testing.T) {
	records := []Record{
		{ID: "t1", Title: "So What"},
		{ID: "t2", Title: "Freddie Freeloader"},
	}

	items := FromRecords(records)

	assert.Equal(t, []string{"t1", "t2"}, IDs(items))
	assert.Equal(t, "So What", items[0].Title)

	assert.Empty(t, FromRecords(nil))
}
