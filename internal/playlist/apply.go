package playlist

import (
	"log"
	"sort"
	"strings"

	"github.com/playlistdoctor/playlist-doctor/internal/textutil"
)

// Apply replays fixes against the original playlist text and returns the
// corrected text plus the number of operations applied. Operations are
// applied in descending line order so earlier insertions/deletions never
// shift the indices later operations rely on. Out-of-range targets are
// skipped with a logged warning, never fatal.
//
// Reordering an already-correct URL is an explicit no-op, so re-applying the
// same operation set to fixed text leaves it unchanged; a rebuild simply
// rewrites an already-correct header to the identical line.
func Apply(content string, fixes []Fix) (string, int) {
	lines := splitKeepEnds(content)

	ordered := append([]Fix(nil), fixes...)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Line > ordered[b].Line
	})

	applied := 0
	for _, fix := range ordered {
		idx := fix.Line - 1
		if idx < 0 || idx >= len(lines) {
			log.Printf("playlist: fix %s targets invalid line %d (have %d lines); skipping", fix.Op, fix.Line, len(lines))
			continue
		}

		switch fix.Op {
		case OpRebuildAttributes:
			header := "#EXTINF:" + fix.Duration + " " + textutil.FormatAttrs(fix.Attrs) + "," + fix.Name
			lines[idx] = header + "\n"
			applied++

		case OpReorderStreamURL:
			url := strings.TrimSpace(fix.URL)
			// Idempotence guard: already immediately after the header.
			if idx+1 < len(lines) && strings.TrimSpace(lines[idx+1]) == url {
				continue
			}
			origIdx := fix.OriginalLine - 1
			if origIdx >= 0 && origIdx < len(lines) && strings.TrimSpace(lines[origIdx]) == url {
				lines = append(lines[:origIdx], lines[origIdx+1:]...)
			} else {
				// The URL drifted from where analysis saw it (earlier fix or
				// hand edit); insert anyway rather than losing the channel.
				log.Printf("playlist: stream URL for channel %q not found at line %d during reorder; inserting only", fix.Name, fix.OriginalLine)
			}
			lines = append(lines, "")
			copy(lines[idx+2:], lines[idx+1:])
			lines[idx+1] = url + "\n"
			applied++

		default:
			log.Printf("playlist: unknown fix op %q at line %d; skipping", fix.Op, fix.Line)
		}
	}

	return strings.Join(lines, ""), applied
}
