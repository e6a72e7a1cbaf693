package guide

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestMerge_OverlayReplacesNonEmptyFields(t *testing.T) {
	base := []Listing{
		{ID: "1", ChannelID: "ard", Start: 100, End: 200, Title: "Tatort", Details: Details{Subtitle: "old", ImageToken: "img"}},
		{ID: "2", ChannelID: "ard", Start: 200, End: 300, Title: "News"},
		{ChannelID: "ard", Start: 300, End: 400, Title: "No id"},
	}
	overlay := Overlay{
		"1": {Title: "Tatort: Neu", Subtitle: "Folge 3", Genres: []string{"Krimi"}, Season: 2, Episode: 3, End: 250},
		"":  {Description: "must not apply"},
	}

	got := Merge(base, overlay)
	want := []Listing{
		{ID: "1", ChannelID: "ard", Start: 100, End: 250, Title: "Tatort: Neu", Details: Details{
			Subtitle: "Folge 3", ImageToken: "img", Genres: []string{"Krimi"}, Season: 2, Episode: 3,
		}},
		base[1],
		base[2],
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Merge mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "old", base[0].Details.Subtitle, "input must not be modified")
}

func TestMerge_DuplicateIDsAllEnriched(t *testing.T) {
	base := []Listing{{ID: "7", Title: "A"}, {ID: "7", Title: "A"}}
	got := Merge(base, Overlay{"7": {Description: "d"}})
	assert.Equal(t, "d", got[0].Details.Description)
	assert.Equal(t, "d", got[1].Details.Description)
}

func TestDedupe(t *testing.T) {
	in := []Listing{
		{ID: "1", ChannelID: "ard", Start: 0, End: 10, Title: "first"},
		{ID: "2", ChannelID: "ard", Start: 0, End: 10, Title: "second"},
		{ID: "3", ChannelID: "zdf", Start: 0, End: 10, Title: "other channel"},
		{ID: "4", ChannelID: "ard", Start: 10, End: 20, Title: "next"},
	}
	got := Dedupe(in)
	assert.Equal(t, []string{"first", "other channel", "next"}, []string{got[0].Title, got[1].Title, got[2].Title})
	assert.Len(t, got, 3)
	assert.Len(t, in, 4)
}
