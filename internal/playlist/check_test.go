package playlist

import (
	"strings"
	"testing"

	"github.com/playlistdoctor/playlist-doctor/internal/diag"
)

func TestCheck_empty(t *testing.T) {
	res := Check("", ModeAdvanced)
	if len(res.Entries) != 0 || len(res.Fixes) != 0 || res.Diags.Len() != 0 {
		t.Errorf("expected empty result; got %d entries, %d fixes, %d diags",
			len(res.Entries), len(res.Fixes), res.Diags.Len())
	}
}

func TestCheck_advancedStagesAllAttributes(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1,Alpha One
http://example.com/alpha.m3u8
`
	res := Check(m3u, ModeAdvanced)

	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 entry; got %d", len(res.Entries))
	}
	e := res.Entries[0]
	if e.TVGID != "alpha_one" || e.TVGName != "Alpha One" || e.GroupTitle != "Unsorted" {
		t.Errorf("entry = %+v", e)
	}
	if e.StreamURL != "http://example.com/alpha.m3u8" {
		t.Errorf("StreamURL = %q", e.StreamURL)
	}

	if len(res.Fixes) != 1 {
		t.Fatalf("expected 1 fix; got %d: %+v", len(res.Fixes), res.Fixes)
	}
	fix := res.Fixes[0]
	if fix.Op != OpRebuildAttributes || fix.Line != 2 || fix.Duration != "-1" || fix.Name != "Alpha One" {
		t.Errorf("fix = %+v", fix)
	}
	if fix.Attrs["tvg-id"] != "alpha_one" || fix.Attrs["tvg-name"] != "Alpha One" || fix.Attrs["group-title"] != "Unsorted" {
		t.Errorf("fix attrs = %+v", fix.Attrs)
	}

	if res.Diags.Count(diag.Warning) != 2 || res.Diags.Count(diag.Suggestion) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}

func TestCheck_basicOnlyStagesTVGID(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1,Alpha One
http://example.com/alpha.mp4
`
	res := Check(m3u, ModeBasic)
	if len(res.Fixes) != 1 {
		t.Fatalf("expected 1 fix; got %d", len(res.Fixes))
	}
	attrs := res.Fixes[0].Attrs
	if attrs["tvg-id"] != "alpha_one" {
		t.Errorf("attrs = %+v", attrs)
	}
	if _, ok := attrs["tvg-name"]; ok {
		t.Error("basic mode must not stage tvg-name")
	}
	if _, ok := attrs["group-title"]; ok {
		t.Error("basic mode must not stage group-title")
	}
	// No container advisory in basic mode either.
	for _, s := range res.Diags.Strings() {
		if strings.Contains(s, "HLS") {
			t.Errorf("unexpected container advisory in basic mode: %s", s)
		}
	}
}

func TestCheck_cleanEntryNeedsNoFix(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1 tvg-id="alpha" tvg-name="Alpha One" group-title="News",Alpha One
http://example.com/alpha.m3u8
`
	res := Check(m3u, ModeAdvanced)
	if len(res.Fixes) != 0 {
		t.Errorf("expected no fixes; got %+v", res.Fixes)
	}
	if res.Diags.Len() != 0 {
		t.Errorf("expected no diags; got %v", res.Diags.Strings())
	}
}

func TestCheck_displacedURL(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1 tvg-id="alpha" tvg-name="Alpha One" group-title="News",Alpha One

http://example.com/alpha.ts
`
	res := Check(m3u, ModeAdvanced)
	if len(res.Entries) != 1 || res.Entries[0].StreamURL != "http://example.com/alpha.ts" {
		t.Fatalf("entries = %+v", res.Entries)
	}
	if len(res.Fixes) != 1 {
		t.Fatalf("expected 1 fix; got %+v", res.Fixes)
	}
	fix := res.Fixes[0]
	if fix.Op != OpReorderStreamURL || fix.Line != 2 || fix.OriginalLine != 4 || fix.URL != "http://example.com/alpha.ts" {
		t.Errorf("fix = %+v", fix)
	}
	if res.Diags.Count(diag.Error) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}

func TestCheck_missingURLConsumesOneLine(t *testing.T) {
	m3u := `#EXTINF:-1 tvg-id="alpha" tvg-name="Alpha One" group-title="News",Alpha One
#EXTINF:-1 tvg-id="beta" tvg-name="Beta Two" group-title="News",Beta Two
http://example.com/beta.ts
`
	res := Check(m3u, ModeAdvanced)
	// The second header must not be swallowed by the first entry's URL scan.
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries; got %+v", res.Entries)
	}
	if res.Entries[0].StreamURL != "" {
		t.Errorf("first entry should have no URL; got %q", res.Entries[0].StreamURL)
	}
	if res.Entries[1].StreamURL != "http://example.com/beta.ts" {
		t.Errorf("second entry URL = %q", res.Entries[1].StreamURL)
	}
	if res.Diags.Count(diag.Error) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}

func TestCheck_blankLineAfterURLLessHeader(t *testing.T) {
	m3u := `#EXTINF:-1 tvg-id="alpha" tvg-name="Alpha One" group-title="News",Alpha One

#EXTINF:-1 tvg-id="beta" tvg-name="Beta Two" group-title="News",Beta Two
http://example.com/beta.ts
`
	res := Check(m3u, ModeAdvanced)
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries; got %+v", res.Entries)
	}
	// Only the missing-URL error for the first entry; the blank separator
	// must not be reported as an unexpected line.
	if res.Diags.Count(diag.Error) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
	for _, d := range res.Diags.Strings() {
		if strings.Contains(d, "unexpected line") {
			t.Errorf("blank line flagged: %s", d)
		}
	}
}

func TestCheck_malformedHeader(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:abc,Broken
http://example.com/x.ts
`
	res := Check(m3u, ModeAdvanced)
	if res.Diags.Count(diag.Error) != 1 {
		t.Fatalf("diags = %v", res.Diags.Strings())
	}
	if len(res.Entries) != 0 {
		t.Errorf("malformed header should not produce an entry; got %+v", res.Entries)
	}
	// The URL line is then an orphan and reported as unexpected.
	if res.Diags.Count(diag.Warning) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}

func TestCheck_duplicateIDsAndNames(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1 tvg-id="dup" tvg-name="Alpha One" group-title="News",Alpha One
http://example.com/1.ts
#EXTINF:-1 tvg-id="dup" tvg-name="Alpha One" group-title="News",Alpha One
http://example.com/2.ts
#EXTINF:-1 tvg-id="dup" tvg-name="Alpha One" group-title="News",Alpha One
http://example.com/3.ts
`
	res := Check(m3u, ModeAdvanced)
	var dupID, dupName []string
	for _, s := range res.Diags.Strings() {
		if strings.Contains(s, "duplicate 'tvg-id'") {
			dupID = append(dupID, s)
		}
		if strings.Contains(s, "duplicate channel name") {
			dupName = append(dupName, s)
		}
	}
	if len(dupID) != 2 || len(dupName) != 2 {
		t.Fatalf("expected 2 duplicate-id and 2 duplicate-name warnings; got %v", res.Diags.Strings())
	}
	// The third occurrence lists both earlier lines.
	if !strings.Contains(dupID[1], "2, 4") {
		t.Errorf("third duplicate should list lines 2, 4: %s", dupID[1])
	}
}

func TestCheck_channelCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for i := 0; i < 3; i++ {
		b.WriteString(`#EXTINF:-1 tvg-id="ch` + string(rune('a'+i)) + `" tvg-name="Ch ` + string(rune('A'+i)) + `" group-title="X",Ch ` + string(rune('A'+i)) + "\n")
		b.WriteString("http://example.com/s.ts\n")
	}
	res := Checker{Mode: ModeAdvanced, ChannelCap: 2}.Check(b.String())
	capWarnings := 0
	for _, s := range res.Diags.Strings() {
		if strings.Contains(s, "detected 3 channels") {
			capWarnings++
		}
	}
	if capWarnings != 1 {
		t.Errorf("expected exactly one capacity warning; got %v", res.Diags.Strings())
	}
}

func TestCheck_vlcOptionsAndUnexpectedLines(t *testing.T) {
	m3u := `#EXTM3U
#EXTVLCOPT:http-user-agent=Foo
#EXTINF:-1 tvg-id="alpha" tvg-name="Alpha One" group-title="News",Alpha One
http://example.com/alpha.ts
stray text
`
	res := Check(m3u, ModeAdvanced)
	if res.Diags.Len() != 1 {
		t.Fatalf("diags = %v", res.Diags.Strings())
	}
	d := res.Diags.Items[0]
	if d.Severity != diag.Warning || d.Line != 5 || !strings.Contains(d.Message, "unexpected line") {
		t.Errorf("diag = %+v", d)
	}
}

func TestCheck_containerAdvisory(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1 tvg-id="alpha" tvg-name="Alpha One" group-title="News",Alpha One
http://example.com/alpha.mp4
`
	res := Check(m3u, ModeAdvanced)
	if res.Diags.Count(diag.Suggestion) != 1 {
		t.Errorf("expected container advisory; got %v", res.Diags.Strings())
	}
}

func TestCheckAndApply_roundTrip(t *testing.T) {
	m3u := "#EXTINF:-1,My Channel\nhttp://x/y.m3u8\n"
	res := Check(m3u, ModeAdvanced)

	fixed, applied := Apply(m3u, res.Fixes)
	if applied != 1 {
		t.Fatalf("applied = %d, fixes = %+v", applied, res.Fixes)
	}
	header := strings.SplitN(fixed, "\n", 2)[0]
	for _, want := range []string{`tvg-id="my_channel"`, `group-title="Unsorted"`, "#EXTINF:-1 ", ",My Channel"} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q: %s", want, header)
		}
	}
	if !strings.HasSuffix(fixed, "http://x/y.m3u8\n") {
		t.Errorf("URL line changed:\n%s", fixed)
	}

	// Re-parsing the corrected text reports no missing tvg-id.
	again := Check(fixed, ModeAdvanced)
	for _, s := range again.Diags.Strings() {
		if strings.Contains(s, "missing 'tvg-id'") {
			t.Errorf("fixed text still reports missing tvg-id: %s", s)
		}
	}
}

func TestCheck_uncleanTVGNameReplaced(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1 tvg-id="alpha" tvg-name="123456" group-title="News",Alpha One
http://example.com/alpha.ts
`
	res := Check(m3u, ModeAdvanced)
	if len(res.Fixes) != 1 {
		t.Fatalf("expected 1 fix; got %+v", res.Fixes)
	}
	if got := res.Fixes[0].Attrs["tvg-name"]; got != "Alpha One" {
		t.Errorf("staged tvg-name = %q", got)
	}
	found := false
	for _, s := range res.Diags.Strings() {
		if strings.Contains(s, "unclean 'tvg-name'") {
			found = true
		}
	}
	if !found {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}
