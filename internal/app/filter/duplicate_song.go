package filter

import (
	"context"
	"regexp"
	"strings"
)

// DuplicateSongFilter rejects tracks already in the library.
// A track matches a song when the normalized titles are equal and the main
// artist is the song's first author, so remasters and live versions count as
// the same song while covers by other artists do not.
type DuplicateSongFilter struct{}

func (f *DuplicateSongFilter) Name() string {
	return "duplicate_song_filter"
}

func (f *DuplicateSongFilter) Description() string {
	return "Skips tracks already in the library (remasters included); covers by other artists are imported"
}

func (f *DuplicateSongFilter) ReturnCodes() []string {
	return []string{"duplicate_song"}
}

func (f *DuplicateSongFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *DuplicateSongFilter) Check(ctx context.Context, c Candidate) Result {
	if len(c.Track.Artists) == 0 {
		return Accept()
	}
	title := normalizeTitle(c.Track.Name)
	artist := c.Track.Artists[0]

	for _, s := range c.Library {
		if normalizeTitle(s.Title) != title {
			continue
		}
		if strings.EqualFold(firstAuthor(s.Authors), artist) {
			return Reject("duplicate_song")
		}
	}
	return Accept()
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*\((en )?vivo\)`),        // "(En Vivo)"
		regexp.MustCompile(`\s*-\s*(en )?vivo$`),       // "- En Vivo"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s*-\s*live\b.*$`),         // "- Live at ..."
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	spaces = regexp.MustCompile(`\s+`)
)

// normalizeTitle removes remaster information and version details.
func normalizeTitle(name string) string {
	normalized := strings.ToLower(name)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")

	// Remove trailing dashes
	return strings.TrimRight(normalized, " -")
}

// firstAuthor returns the main author of a comma separated author list.
func firstAuthor(authors string) string {
	first, _, _ := strings.Cut(authors, ",")
	return strings.TrimSpace(first)
}

func init() {
	Register("duplicate_song_filter", func() Filter {
		return &DuplicateSongFilter{}
	})
}
