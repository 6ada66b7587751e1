// Package textutil holds the name/attribute heuristics shared by the playlist
// and guide checkers: tvg-id sanitization, #EXTINF attribute formatting, and
// the display-name cleanup pipeline.
package textutil

import (
	"regexp"
	"strings"
)

// PlaceholderName is used when no usable display name can be derived.
const PlaceholderName = "Unknown Channel"

var (
	idStripRx    = regexp.MustCompile(`[^\w\s-]`)
	idCollapseRx = regexp.MustCompile(`[\s-]+`)

	gracenoteRx = regexp.MustCompile(`^(EP|MV|SH|GR)\d{8,}(\.[FS]\.EP)?$|^\d{8,}$`)

	allDigitsRx     = regexp.MustCompile(`^\d+$`)
	leadingQuotedRx = regexp.MustCompile(`^["']([^"']+)["']`)
	quotesRx        = regexp.MustCompile(`["']`)

	doubleDashSuffixRx = regexp.MustCompile(`\s+--\s+.*$`)
	dashSuffixRx       = regexp.MustCompile(`\s+-\s+.*$`)
	colonSuffixRx      = regexp.MustCompile(`\s*:\s+.*$`)
	parenSuffixRx      = regexp.MustCompile(`\s*\(.*\)$`)
	bracketSuffixRx    = regexp.MustCompile(`\s*\[.*\]$`)
	qualityWordRx      = regexp.MustCompile(`(?i)\s+(HD|SD|Live|TV|Channel|Show|Movie|Series|Now)\s*$`)
	punctStripRx       = regexp.MustCompile(`[^\w\s.,&+\-:]`)

	closedParenRx = regexp.MustCompile(`\s*\([^)]*\)$`)
)

// SanitizeID derives a tvg-id candidate from a channel name: everything but
// word characters, spaces and hyphens is dropped, runs of spaces/hyphens
// collapse to a single underscore, and the result is lowercased. May return
// "" when the name has no usable characters.
func SanitizeID(name string) string {
	s := strings.TrimSpace(idStripRx.ReplaceAllString(name, ""))
	s = idCollapseRx.ReplaceAllString(s, "_")
	return strings.ToLower(s)
}

// IsGracenoteID reports whether id looks like an externally-sourced guide
// identifier (EP/MV/SH/GR prefix followed by 8+ digits with an optional
// .F.EP/.S.EP suffix, or a bare 8+ digit numeral). DVR platforms resolve
// such ids against their own guide data, so a playlist carrying them can
// work without a companion EPG file.
func IsGracenoteID(id string) bool {
	if id == "" {
		return false
	}
	return gracenoteRx.MatchString(id)
}

// nameStep is one stage of the display-name pipeline. It returns the cleaned
// name and true when it produced a usable result; false hands off to the next
// step. Keeping the stages named and ordered keeps the heuristic auditable.
type nameStep struct {
	name string
	fn   func(raw string, attrs AttrMap) (string, bool)
}

var nameSteps = []nameStep{
	{"tvg-name-attr", nameFromTVGName},
	{"guide-title-attr", nameFromGuideTitle},
	{"leading-quoted", nameFromLeadingQuote},
	{"pre-comma", nameFromPreComma},
	{"aggressive-cleanup", nameFromCleanup},
}

// CleanDisplayName derives a concise display name for an entry from the raw
// text after the #EXTINF comma and the parsed header attributes. Falls back
// to PlaceholderName when every step comes up empty.
func CleanDisplayName(rawName string, attrs AttrMap) string {
	raw := strings.TrimSpace(rawName)
	for _, step := range nameSteps {
		if out, ok := step.fn(raw, attrs); ok {
			return out
		}
	}
	return PlaceholderName
}

// nameFromTVGName trusts an existing tvg-name attribute when it looks sane.
// A value with an embedded comma usually means the header regex swallowed a
// description into the attribute, so only the part before the comma counts.
func nameFromTVGName(_ string, attrs AttrMap) (string, bool) {
	v := strings.TrimSpace(attrs.Get("tvg-name"))
	if v == "" {
		return "", false
	}
	if i := strings.Index(v, ","); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	if v != "" && len(v) < 60 && !allDigitsRx.MatchString(v) {
		return v, true
	}
	return "", false
}

func nameFromGuideTitle(_ string, attrs AttrMap) (string, bool) {
	v := strings.TrimSpace(attrs.Get("tvc-guide-title"))
	return v, v != ""
}

// nameFromLeadingQuote extracts the content of a quoted segment at the very
// start of the raw name, e.g. `"Pluto TV Trending Now",description`.
func nameFromLeadingQuote(raw string, _ AttrMap) (string, bool) {
	m := leadingQuotedRx.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	if v != "" && len(v) < 60 {
		return v, true
	}
	return "", false
}

// nameFromPreComma uses the text before the first comma when it is long
// enough to be a name rather than a stray token.
func nameFromPreComma(raw string, _ AttrMap) (string, bool) {
	i := strings.Index(raw, ",")
	if i < 0 {
		return "", false
	}
	seg := strings.TrimSpace(raw[:i])
	if seg == "" || len(seg) <= 2 {
		return "", false
	}
	v := strings.TrimSpace(quotesRx.ReplaceAllString(seg, ""))
	return v, v != ""
}

// nameFromCleanup is the last resort: strip quotes, chop trailing
// description separators, parentheticals, bracketed suffixes and quality
// words, truncate overlong results, and drop leftover punctuation.
func nameFromCleanup(raw string, _ AttrMap) (string, bool) {
	v := strings.TrimSpace(quotesRx.ReplaceAllString(raw, ""))
	v = strings.TrimSpace(doubleDashSuffixRx.ReplaceAllString(v, ""))
	v = strings.TrimSpace(dashSuffixRx.ReplaceAllString(v, ""))
	v = strings.TrimSpace(colonSuffixRx.ReplaceAllString(v, ""))
	v = strings.TrimSpace(parenSuffixRx.ReplaceAllString(v, ""))
	v = strings.TrimSpace(bracketSuffixRx.ReplaceAllString(v, ""))
	v = strings.TrimSpace(qualityWordRx.ReplaceAllString(v, ""))
	if r := []rune(v); len(r) > 50 {
		v = strings.TrimSpace(string(r[:47])) + "..."
	}
	v = strings.TrimSpace(punctStripRx.ReplaceAllString(v, ""))
	return v, v != ""
}

// LooksLikeBadTVGName reports whether an existing tvg-name value should be
// replaced: purely numeric, overlong, containing raw commas or quotes, or
// carrying a trailing description/parenthetical.
func LooksLikeBadTVGName(v string) bool {
	if allDigitsRx.MatchString(v) {
		return true
	}
	if len(v) > 50 {
		return true
	}
	if strings.ContainsAny(v, `,"'`) {
		return true
	}
	if doubleDashSuffixRx.MatchString(v) || colonSuffixRx.MatchString(v) || closedParenRx.MatchString(v) {
		return true
	}
	return false
}
