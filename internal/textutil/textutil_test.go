package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeID(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"My Channel", "my_channel"},
		{"CNN HD!", "cnn_hd"},
		{"A - B", "a_b"},
		{"  spaced  out  ", "spaced_out"},
		{"!!!", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeID(c.in); got != c.want {
			t.Errorf("SanitizeID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsGracenoteID(t *testing.T) {
	for _, id := range []string{"EP012345678", "MV12345678", "SH00000001", "GR987654321", "EP012345678.F.EP", "SH12345678.S.EP", "12345678"} {
		if !IsGracenoteID(id) {
			t.Errorf("IsGracenoteID(%q) = false, want true", id)
		}
	}
	for _, id := range []string{"", "my_channel", "EP1234567", "1234567", "XX12345678", "EP012345678.X.EP"} {
		if IsGracenoteID(id) {
			t.Errorf("IsGracenoteID(%q) = true, want false", id)
		}
	}
}

func TestParseAttrs(t *testing.T) {
	m := ParseAttrs(`tvg-id="cnn" TVG-NAME="CNN HD" group-title="News"`)
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	if got := m.Get("tvg-id"); got != "cnn" {
		t.Errorf("Get(tvg-id) = %q", got)
	}
	// Keys are case-insensitive.
	if got := m.Get("tvg-name"); got != "CNN HD" {
		t.Errorf("Get(tvg-name) = %q", got)
	}
	if m.Has("missing") {
		t.Error("Has(missing) = true")
	}
}

func TestFormatAttrs(t *testing.T) {
	got := FormatAttrs(map[string]string{
		"tvg-id":      "cnn",
		"group-title": "News",
		"tvg-logo":    "  ", // blank values are dropped
	})
	want := `group-title="News" tvg-id="cnn"`
	if got != want {
		t.Errorf("FormatAttrs = %q, want %q", got, want)
	}
}

func TestFormatAttrs_escapesQuotes(t *testing.T) {
	got := FormatAttrs(map[string]string{"tvg-name": `The "Best" One`})
	if got != `tvg-name="The \"Best\" One"` {
		t.Errorf("FormatAttrs = %q", got)
	}
}

func TestCleanDisplayName_tvgNamePreferred(t *testing.T) {
	attrs := ParseAttrs(`tvg-name="CNN International"`)
	if got := CleanDisplayName("whatever raw text", attrs); got != "CNN International" {
		t.Errorf("got %q", got)
	}
}

func TestCleanDisplayName_tvgNameCommaRescue(t *testing.T) {
	attrs := ParseAttrs(`tvg-name="CNN, the news channel everyone knows"`)
	if got := CleanDisplayName("raw", attrs); got != "CNN" {
		t.Errorf("got %q", got)
	}
}

func TestCleanDisplayName_allDigitsTVGNameSkipped(t *testing.T) {
	attrs := ParseAttrs(`tvg-name="123456"`)
	if got := CleanDisplayName("Real Name", attrs); got != "Real Name" {
		t.Errorf("got %q", got)
	}
}

func TestCleanDisplayName_guideTitleFallback(t *testing.T) {
	attrs := ParseAttrs(`tvc-guide-title="Pluto TV Trending"`)
	if got := CleanDisplayName("junk", attrs); got != "Pluto TV Trending" {
		t.Errorf("got %q", got)
	}
}

func TestCleanDisplayName_leadingQuote(t *testing.T) {
	got := CleanDisplayName(`"Pluto TV Trending Now",tune in for more`, NewAttrMap())
	if got != "Pluto TV Trending Now" {
		t.Errorf("got %q", got)
	}
}

func TestCleanDisplayName_preComma(t *testing.T) {
	got := CleanDisplayName("Discovery Science, all day marathon", NewAttrMap())
	if got != "Discovery Science" {
		t.Errorf("got %q", got)
	}
}

func TestCleanDisplayName_cleanupSuffixes(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"CNN -- your 24/7 news source", "CNN"},
		{"CNN - your 24/7 news source", "CNN"},
		{"CNN: breaking news now", "CNN"},
		{"CNN (US feed)", "CNN"},
		{"CNN [backup]", "CNN"},
		{"CNN HD", "CNN"},
	}
	for _, c := range cases {
		if got := CleanDisplayName(c.in, NewAttrMap()); got != c.want {
			t.Errorf("CleanDisplayName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanDisplayName_truncation(t *testing.T) {
	long := strings.Repeat("aaaa ", 20)
	got := CleanDisplayName(long, NewAttrMap())
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long name not truncated: %q", got)
	}
	if n := len([]rune(got)); n > 50 {
		t.Errorf("truncated name still %d runes", n)
	}
}

func TestCleanDisplayName_placeholder(t *testing.T) {
	if got := CleanDisplayName("", NewAttrMap()); got != PlaceholderName {
		t.Errorf("got %q, want %q", got, PlaceholderName)
	}
	if got := CleanDisplayName("!!!", NewAttrMap()); got != PlaceholderName {
		t.Errorf("got %q, want %q", got, PlaceholderName)
	}
}

func TestLooksLikeBadTVGName(t *testing.T) {
	bad := []string{
		"123456",
		strings.Repeat("x", 51),
		`has "quotes"`,
		"has, comma",
		"Name -- trailing description here",
		"Name: trailing description",
		"Name (US)",
	}
	for _, v := range bad {
		if !LooksLikeBadTVGName(v) {
			t.Errorf("LooksLikeBadTVGName(%q) = false, want true", v)
		}
	}
	good := []string{"CNN", "BBC One", "Channel 4 HD"}
	for _, v := range good {
		if LooksLikeBadTVGName(v) {
			t.Errorf("LooksLikeBadTVGName(%q) = true, want false", v)
		}
	}
}
