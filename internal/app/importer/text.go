package importer

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/showtime/internal/domain/song"
)

var (
	durationLabels = []string{"tiempo:", "time:", "duración:", "duration:"}
	authorLabels   = []string{"autores:", "authors:"}
)

// ParseText reads a plain-text repertoire listing:
//
//	TITLE
//	Autores: A, B
//	Tiempo: 3:05 (comments in parentheses are ignored)
//
// Blocks are separated by blank lines. Unlabeled lines after the title are
// appended to the authors. Blocks without a title or duration are skipped.
func ParseText(r io.Reader, ids IDFunc) ([]song.Song, error) {
	if ids == nil {
		ids = newID
	}

	var (
		songs    []song.Song
		title    string
		authors  []string
		duration string
	)
	flush := func() {
		if title != "" && duration != "" {
			songs = append(songs, song.Song{
				ID:       ids(),
				Title:    title,
				Authors:  strings.Join(authors, " "),
				Duration: duration,
				Type:     song.TypeSong,
			}.Normalized())
		}
		title, authors, duration = "", nil, ""
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if v, ok := labeled(line, durationLabels); ok {
			if i := strings.Index(v, "("); i >= 0 {
				v = strings.TrimSpace(v[:i])
			}
			duration = v
			continue
		}
		if v, ok := labeled(line, authorLabels); ok {
			authors = append(authors, v)
			continue
		}
		if title == "" {
			title = line
		} else {
			authors = append(authors, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read repertoire text")
	}
	flush()

	if len(songs) == 0 {
		return nil, errors.Mark(errors.New("no songs found in text"), ErrInvalidImport)
	}
	return songs, nil
}

func labeled(line string, labels []string) (string, bool) {
	lower := strings.ToLower(line)
	for _, l := range labels {
		if strings.HasPrefix(lower, l) {
			return strings.TrimSpace(line[len(l):]), true
		}
	}
	return "", false
}
