package playlist

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/playlistdoctor/playlist-doctor/internal/diag"
	"github.com/playlistdoctor/playlist-doctor/internal/textutil"
)

// DefaultChannelCap is the practical per-playlist ceiling of the target DVR
// players; exceeding it triggers a capacity warning.
const DefaultChannelCap = 750

// DefaultGroupTitle is the grouping value staged for entries that carry none.
const DefaultGroupTitle = "Unsorted"

// headerRx splits an entry header into duration, attribute text (up to the
// first top-level comma) and the raw channel name after it. An attribute
// value containing an unescaped comma defeats this split; that is an accepted
// limitation of the dialect.
var headerRx = regexp.MustCompile(`#EXTINF:(-?\d+)\s*([^,]*),(.*)`)

// Checker validates playlist text. The zero value checks in basic mode with
// the default channel cap.
type Checker struct {
	Mode       Mode
	ChannelCap int // 0 = DefaultChannelCap
}

// Check is shorthand for Checker{Mode: mode}.Check(content).
func Check(content string, mode Mode) Result {
	return Checker{Mode: mode}.Check(content)
}

// Check tokenizes content line by line, validates every recognized entry and
// synthesizes fix operations. It never fails outright: malformed input
// degrades to diagnostics and the best-effort entry list.
func (c Checker) Check(content string) Result {
	channelCap := c.ChannelCap
	if channelCap <= 0 {
		channelCap = DefaultChannelCap
	}

	diags := diag.NewList(diag.SourcePlaylist)
	var entries []Entry
	var fixes []Fix
	lines := splitLines(content)

	channelCount := 0
	tvgIDLines := map[string][]int{}
	nameLines := map[string][]int{}

	i := 0
	for i < len(lines) {
		lineNum := i + 1
		line := strings.TrimSpace(lines[i])

		// Blank lines are insignificant except directly after an entry
		// header, where the URL search below must see them.
		if line == "" && !(i > 0 && strings.HasPrefix(strings.TrimSpace(lines[i-1]), "#EXTINF:")) {
			i++
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			channelCount++

			m := headerRx.FindStringSubmatch(line)
			if m == nil {
				diags.Errorf(lineNum, "malformed EXTINF line %q; expected '#EXTINF:<duration> [attributes],<channel name>'", line)
				i++
				continue
			}
			duration := m[1]
			attrsText := strings.TrimSpace(m[2])
			rawName := strings.TrimSpace(m[3])

			if rawName == "" {
				diags.Errorf(lineNum, "channel name missing in EXTINF line %q", line)
			}

			attrs := textutil.ParseAttrs(attrsText)
			current := attrs.Clone()
			staged := false

			tvgID := strings.TrimSpace(attrs.Get("tvg-id"))
			tvgName := strings.TrimSpace(attrs.Get("tvg-name"))
			groupTitle := strings.TrimSpace(attrs.Get("group-title"))

			displayName := textutil.CleanDisplayName(rawName, attrs)

			// tvg-id is required in both modes: without it no guide matching
			// is possible. The suggestion sanitizes the raw name so the id
			// keeps every word of it; the display name may have trailing
			// words stripped for presentation.
			if tvgID == "" {
				suggested := textutil.SanitizeID(rawName)
				if suggested == "" {
					suggested = textutil.SanitizeID(displayName)
				}
				if suggested != "" {
					current.Set("tvg-id", suggested)
					staged = true
					diags.Warnf(lineNum, "channel %q is missing 'tvg-id' (crucial for EPG matching); suggesting fix: add tvg-id=%q", rawName, suggested)
				} else {
					diags.Warnf(lineNum, "channel %q is missing 'tvg-id' (cannot auto-suggest an id for this name)", rawName)
				}
			}

			if c.Mode == ModeAdvanced {
				// Replace tvg-name only when it is absent, or differs from the
				// derived display name AND looks unclean enough to be a
				// mis-parsed description.
				if tvgName == "" ||
					(tvgName != displayName && displayName != textutil.PlaceholderName && textutil.LooksLikeBadTVGName(tvgName)) {
					current.Set("tvg-name", displayName)
					staged = true
					if tvgName == "" {
						diags.Warnf(lineNum, "channel %q is missing 'tvg-name' (often used for display); suggesting fix: add tvg-name=%q", rawName, displayName)
					} else {
						diags.Warnf(lineNum, "channel %q has an unclean 'tvg-name' (%q); suggesting fix: change tvg-name to %q", rawName, tvgName, displayName)
					}
				}

				if groupTitle == "" {
					current.Set("group-title", DefaultGroupTitle)
					staged = true
					diags.Suggestf(lineNum, "channel %q is missing 'group-title' (helps organize channels); suggesting fix: add group-title=%q", rawName, DefaultGroupTitle)
				}
			}

			if staged {
				fixes = append(fixes, Fix{
					Op:       OpRebuildAttributes,
					Line:     lineNum,
					Duration: duration,
					Name:     rawName,
					Attrs:    current.Map(),
				})
			}

			// Duplicate tracking uses the effective (possibly just-suggested)
			// tvg-id, and independently the raw channel name.
			effectiveID := strings.TrimSpace(current.Get("tvg-id"))
			if effectiveID != "" {
				if prev, ok := tvgIDLines[effectiveID]; ok {
					diags.Warnf(lineNum, "duplicate 'tvg-id' %q for channel %q; previous at line(s): %s (players may only import one instance)",
						effectiveID, rawName, joinLineNums(prev))
					tvgIDLines[effectiveID] = append(prev, lineNum)
				} else {
					tvgIDLines[effectiveID] = []int{lineNum}
				}
			}
			if rawName != "" {
				if prev, ok := nameLines[rawName]; ok {
					diags.Warnf(lineNum, "duplicate channel name %q; previous at line(s): %s", rawName, joinLineNums(prev))
					nameLines[rawName] = append(prev, lineNum)
				} else {
					nameLines[rawName] = []int{lineNum}
				}
			}

			// Stream URL discovery: scan forward past blank lines until the
			// next header (URL absent) or a non-comment line (URL found).
			streamURL := ""
			urlLine := -1
			for j := i + 1; j < len(lines); j++ {
				next := strings.TrimSpace(lines[j])
				if next == "" {
					continue
				}
				if strings.HasPrefix(next, "#EXTINF:") || strings.HasPrefix(next, "#EXTM3U") {
					break
				}
				if !strings.HasPrefix(next, "#") {
					streamURL = next
					urlLine = j + 1
					break
				}
			}

			if streamURL != "" {
				if urlLine != i+2 {
					fixes = append(fixes, Fix{
						Op:           OpReorderStreamURL,
						Line:         lineNum,
						OriginalLine: urlLine,
						URL:          streamURL,
						Name:         rawName,
					})
					diags.Errorf(lineNum, "stream URL for channel %q was not immediately after the EXTINF line (found at line %d); suggesting fix: reorder URL", rawName, urlLine)
				}
				// Continue past the resolved URL so it is never re-scanned as
				// an unexpected line.
				i = urlLine - 1
			} else {
				diags.Errorf(lineNum, "missing stream URL after EXTINF line for channel %q; each #EXTINF must be immediately followed by a stream URL", rawName)
			}

			if c.Mode == ModeAdvanced && streamURL != "" && !preferredContainer(streamURL) {
				diags.Suggestf(lineNum, "stream URL for %q might not be HLS (.m3u8) or MPEG-TS (.ts); HLS or raw MPEG-TS streams are preferred", rawName)
			}

			entries = append(entries, Entry{
				Name:       rawName,
				TVGID:      current.Get("tvg-id"),
				TVGName:    current.Get("tvg-name"),
				TVGLogo:    current.Get("tvg-logo"),
				GroupTitle: current.Get("group-title"),
				StreamURL:  streamURL,
			})

		case strings.HasPrefix(line, "#EXTVLCOPT:"):
			// VLC option comments are inert; skip silently.

		case line != "" && !strings.HasPrefix(line, "#EXTM3U"):
			diags.Warnf(lineNum, "unexpected line (might be ignored): %q", line)
		}

		i++
	}

	if channelCount > channelCap {
		diags.Warnf(0, "detected %d channels; players may hit performance issues or import limits above ~%d channels per playlist", channelCount, channelCap)
	}

	return Result{Diags: diags, Entries: entries, Fixes: fixes}
}

func preferredContainer(streamURL string) bool {
	u := strings.ToLower(streamURL)
	return strings.HasSuffix(u, ".m3u8") || strings.Contains(u, ".ts") || strings.Contains(u, "/hls/")
}

func joinLineNums(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
