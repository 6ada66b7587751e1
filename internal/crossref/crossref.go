// Package crossref compares playlist identifiers against guide identifiers
// and reports channels that will not receive guide data either way.
package crossref

import (
	"sort"
	"strings"

	"github.com/playlistdoctor/playlist-doctor/internal/diag"
	"github.com/playlistdoctor/playlist-doctor/internal/guide"
	"github.com/playlistdoctor/playlist-doctor/internal/playlist"
	"github.com/playlistdoctor/playlist-doctor/internal/textutil"
)

// Advisories is the fixed best-practice list appended to every compatibility
// report, independent of findings.
var Advisories = []string{
	"For optimal guide data, ensure 'tvg-id' in the playlist exactly matches 'id' in the guide (case-sensitive).",
	"Missing or inconsistent 'tvg-id' attributes are the most common reason for guide data not showing up.",
	"Duplicate 'tvg-id' values in a playlist can cause unpredictable channel importing.",
	"Ensure the guide includes essential program details like <title>, <desc>, series-id (for TV shows) and episode-num.",
	"Overlapping program times for a single channel can lead to incorrect guide display or recording issues.",
	"HLS (.m3u8) or raw MPEG-TS (.ts) streams are preferred; other containers may have limited or no support.",
	"Consider adding a 'group-title' to playlist channels to organize them into categories.",
	"Guide data can work without an external guide file when playlist tvg-ids map to known Gracenote identifiers; otherwise an external guide source is required.",
}

// Check cross-references the playlist entries against the guide channel map.
// It returns the compatibility issue list (warnings and notes in discovery
// order) and the general advisories. Entries with an empty tvg-id are not
// re-flagged here; the playlist checker already reported them.
func Check(entries []playlist.Entry, guideChannels map[string]guide.Channel) (*diag.List, []string) {
	issues := diag.NewList(diag.SourceCompat)

	if len(guideChannels) == 0 {
		if len(entries) > 0 {
			if anyGracenoteID(entries) {
				issues.Notef(0, "no guide data was provided, but some playlist tvg-ids look like Gracenote identifiers; those channels may resolve guide data without a guide file")
			} else {
				issues.Notef(0, "no guide data was provided; playlist channels will have no guide data unless their tvg-ids map to known Gracenote identifiers")
			}
		}
		return issues, advisories()
	}

	playlistIDs := make(map[string]bool, len(entries))
	for _, e := range entries {
		if id := strings.TrimSpace(e.TVGID); id != "" {
			playlistIDs[id] = true
		}
	}

	for _, e := range entries {
		id := strings.TrimSpace(e.TVGID)
		if id == "" {
			continue
		}
		if _, ok := guideChannels[id]; !ok {
			issues.Warnf(0, "playlist channel %q (tvg-id %q) has no matching guide data by 'tvg-id'; this channel may not show guide data", e.Name, id)
		}
	}

	// Guide ids sorted for deterministic output; the source set had no
	// meaningful order.
	guideIDs := make([]string, 0, len(guideChannels))
	for id := range guideChannels {
		guideIDs = append(guideIDs, id)
	}
	sort.Strings(guideIDs)
	for _, id := range guideIDs {
		if playlistIDs[id] {
			continue
		}
		names := guideChannels[id].DisplayNames
		if len(names) == 0 {
			names = []string{"N/A"}
		}
		issues.Warnf(0, "guide channel %q (id %q) has no matching playlist channel via 'tvg-id'; this guide data will not be used", strings.Join(names, ", "), id)
	}

	return issues, advisories()
}

func anyGracenoteID(entries []playlist.Entry) bool {
	for _, e := range entries {
		if textutil.IsGracenoteID(strings.TrimSpace(e.TVGID)) {
			return true
		}
	}
	return false
}

func advisories() []string {
	return append([]string(nil), Advisories...)
}
