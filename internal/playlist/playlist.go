// Package playlist parses extended-M3U playlists, validates entries against
// the constraints of DVR-style players, and emits replayable fix operations
// alongside its diagnostics.
package playlist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/playlistdoctor/playlist-doctor/internal/diag"
)

// Mode selects rule strictness. Basic covers tvg-id and stream-URL pairing
// only; Advanced adds tvg-name/group-title repair and container advisories.
type Mode int

const (
	ModeBasic Mode = iota
	ModeAdvanced
)

func (m Mode) String() string {
	if m == ModeAdvanced {
		return "advanced"
	}
	return "basic"
}

// ParseMode maps "basic"/"advanced" to a Mode; anything else defaults to
// advanced, the mode the web form preselects.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), "basic") {
		return ModeBasic
	}
	return ModeAdvanced
}

// Entry is one playable channel, immutable once parsed. Attribute fields hold
// the effective values: when the checker staged a fix (e.g. a derived
// tvg-id), the fixed value is recorded here, not the raw one.
type Entry struct {
	Name       string `json:"name"`
	TVGID      string `json:"tvg_id"`
	TVGName    string `json:"tvg_name"`
	TVGLogo    string `json:"tvg_logo"`
	GroupTitle string `json:"group_title"`
	StreamURL  string `json:"stream_url"`
}

// Op tags a fix operation variant.
type Op string

const (
	// OpRebuildAttributes replaces an entry header line wholesale from the
	// merged attribute map.
	OpRebuildAttributes Op = "rebuild_extinf_attributes"
	// OpReorderStreamURL moves a misplaced stream URL to immediately follow
	// its entry header.
	OpReorderStreamURL Op = "reorder_stream_url"
)

// Fix is one corrective edit, addressed by 1-indexed line numbers of the
// original, unmodified input. Applying (see Apply) is solely responsible for
// translating these into positions in the mutating line array; operations are
// independent as long as they are applied in descending line order.
type Fix struct {
	Op   Op  `json:"op"`
	Line int `json:"line"`

	// rebuild_extinf_attributes
	Duration string            `json:"duration,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`

	// reorder_stream_url
	OriginalLine int    `json:"original_line,omitempty"`
	URL          string `json:"url,omitempty"`

	// Name is the raw channel name, used for header reconstruction and for
	// log context when a reorder target has drifted.
	Name string `json:"name,omitempty"`
}

// Result is the full output of a playlist check.
type Result struct {
	Diags   *diag.List
	Entries []Entry
	Fixes   []Fix
}

// MarshalFixes serializes the fix list so a caller can persist it and replay
// later (e.g. a separate download step) without re-running analysis.
func MarshalFixes(fixes []Fix) ([]byte, error) {
	return json.Marshal(fixes)
}

// UnmarshalFixes is the inverse of MarshalFixes.
func UnmarshalFixes(data []byte) ([]Fix, error) {
	var fixes []Fix
	if err := json.Unmarshal(data, &fixes); err != nil {
		return nil, fmt.Errorf("decode fix operations: %w", err)
	}
	return fixes, nil
}

// splitLines mirrors the line-numbering the checker reports against: split on
// newlines, tolerate CRLF, and drop the empty tail a trailing newline leaves
// behind so the last physical line is the last element.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}

// splitKeepEnds splits into lines preserving their terminators, so rebuilt
// output reproduces the input byte-for-byte outside the edited lines.
func splitKeepEnds(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
