package song

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// TypeFilter restricts a library view by entry type.
type TypeFilter string

const (
	FilterAll    TypeFilter = "all"
	FilterSong   TypeFilter = "song"
	FilterSpeech TypeFilter = "speech"
)

// SortKey orders a library view.
type SortKey string

const (
	SortTitle    SortKey = "title"
	SortDuration SortKey = "duration"
)

// Query describes a browse/search request over the library.
type Query struct {
	Search string
	Type   TypeFilter
	Sort   SortKey
	// Language drives title collation. Zero value means language.Spanish.
	Language language.Tag
}

// View returns the filtered, sorted library. The input slice is not modified.
func View(songs []Song, q Query) []Song {
	// Whitespace is part of the term: "love " does not match "Lovely".
	term := strings.ToLower(q.Search)

	out := make([]Song, 0, len(songs))
	for _, s := range songs {
		if !matchesType(s, q.Type) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(s.Title), term) &&
			!strings.Contains(strings.ToLower(s.Authors), term) {
			continue
		}
		out = append(out, s)
	}

	switch q.Sort {
	case SortDuration:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Seconds() < out[j].Seconds()
		})
	default:
		tag := q.Language
		if tag == language.Und {
			tag = language.Spanish
		}
		col := collate.New(tag)
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].Title, out[j].Title) < 0
		})
	}
	return out
}

func matchesType(s Song, f TypeFilter) bool {
	switch f {
	case FilterSpeech:
		return s.Type == TypeSpeech
	case FilterSong:
		return s.Type != TypeSpeech
	default:
		return true
	}
}

// ParseTypeFilter maps free text to a TypeFilter, defaulting to FilterAll.
func ParseTypeFilter(v string) TypeFilter {
	switch TypeFilter(strings.ToLower(v)) {
	case FilterSong:
		return FilterSong
	case FilterSpeech:
		return FilterSpeech
	default:
		return FilterAll
	}
}

// ParseSortKey maps free text to a SortKey, defaulting to SortTitle.
func ParseSortKey(v string) SortKey {
	if SortKey(strings.ToLower(v)) == SortDuration {
		return SortDuration
	}
	return SortTitle
}
