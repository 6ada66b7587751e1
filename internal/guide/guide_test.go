package guide

import (
	"strings"
	"testing"

	"github.com/playlistdoctor/playlist-doctor/internal/diag"
)

const fullProgram = `<programme channel="ch1" start="20260101120000 +0000" stop="20260101130000 +0000" series-id="S1">
<title>Morning Show</title>
<desc>A description.</desc>
<episode-num system="onscreen">S01E01</episode-num>
</programme>`

func TestCheck_wellFormedGuide(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<tv>
<channel id="ch1"><display-name>Channel One</display-name><icon src="http://example.com/1.png"/></channel>
` + fullProgram + `
</tv>`
	res := Check(xml)
	if res.Diags.Len() != 0 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
	ch, ok := res.Channels["ch1"]
	if !ok {
		t.Fatal("channel ch1 missing")
	}
	if len(ch.DisplayNames) != 1 || ch.DisplayNames[0] != "Channel One" {
		t.Errorf("DisplayNames = %v", ch.DisplayNames)
	}
	if ch.IconURL != "http://example.com/1.png" {
		t.Errorf("IconURL = %q", ch.IconURL)
	}
	if len(res.Programs) != 1 || res.Programs[0].Title != "Morning Show" {
		t.Errorf("Programs = %+v", res.Programs)
	}
}

func TestCheck_malformedXMLIsAggregateFatal(t *testing.T) {
	res := Check(`<tv><channel id="ch1"><display-name>One</display-name></channel>`)
	if res.Diags.Count(diag.Error) != 1 {
		t.Fatalf("diags = %v", res.Diags.Strings())
	}
	if len(res.Channels) != 0 || len(res.Programs) != 0 {
		t.Errorf("partial results after parse failure: %d channels, %d programs",
			len(res.Channels), len(res.Programs))
	}
}

func TestCheck_wrongRootElement(t *testing.T) {
	res := Check(`<guide></guide>`)
	if res.Diags.Count(diag.Error) != 1 || !strings.Contains(res.Diags.Items[0].Message, "expected '<tv>'") {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}

func TestCheck_channelMissingID(t *testing.T) {
	res := Check(`<tv><channel><display-name>Nameless</display-name></channel></tv>`)
	if res.Diags.Count(diag.Error) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
	if len(res.Channels) != 0 {
		t.Errorf("id-less channel must be skipped; got %v", res.Channels)
	}
}

func TestCheck_duplicateChannelID(t *testing.T) {
	xml := `<tv>
<channel id="ch1"><display-name>First</display-name></channel>
<channel id="ch1"><display-name>Second</display-name></channel>
</tv>`
	res := Check(xml)
	if res.Diags.Count(diag.Error) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
	if len(res.ChannelOrder) != 1 {
		t.Errorf("ChannelOrder = %v", res.ChannelOrder)
	}
	// Later definition wins the map slot.
	if got := res.Channels["ch1"].DisplayNames[0]; got != "Second" {
		t.Errorf("DisplayNames[0] = %q", got)
	}
}

func TestCheck_channelMissingDisplayName(t *testing.T) {
	res := Check(`<tv><channel id="ch1"></channel></tv>`)
	if res.Diags.Count(diag.Warning) != 1 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
	if _, ok := res.Channels["ch1"]; !ok {
		t.Error("channel without display-name must still be registered")
	}
}

func TestCheck_programFindingsConsolidated(t *testing.T) {
	xml := `<tv>
<channel id="ch1"><display-name>One</display-name></channel>
<programme channel="ch1" start="20260101120000" stop="20260101110000">
<title>Backwards</title>
</programme>
</tv>`
	res := Check(xml)
	if res.Diags.Count(diag.Error) != 1 {
		t.Fatalf("diags = %v", res.Diags.Strings())
	}
	msg := res.Diags.Items[0].Message
	// One diagnostic carries every finding for the program, joined.
	for _, want := range []string{"Backwards", "equal to or after stop", "missing 'desc'", "missing 'series-id'", "missing 'episode-num'"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q: %s", want, msg)
		}
	}
}

func TestCheck_movieSkipsSeriesSuggestions(t *testing.T) {
	xml := `<tv>
<channel id="ch1"><display-name>One</display-name></channel>
<programme channel="ch1" start="20260101120000" stop="20260101140000">
<title>Big Film</title>
<desc>A film.</desc>
<category>Movie</category>
</programme>
</tv>`
	res := Check(xml)
	if res.Diags.Len() != 0 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}

func TestCheck_unknownChannelProgram(t *testing.T) {
	xml := `<tv>
<channel id="ch1"><display-name>One</display-name></channel>
<programme channel="ghost" start="20260101120000" stop="20260101130000">
<title>Orphan</title>
<desc>d</desc>
<category>Movie</category>
</programme>
</tv>`
	res := Check(xml)
	if res.Diags.Count(diag.Error) != 1 || !strings.Contains(res.Diags.Items[0].Message, "unknown channel id") {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
	if len(res.Programs) != 0 {
		t.Errorf("orphan program must be excluded; got %+v", res.Programs)
	}
}

func TestCheck_overlapDetection(t *testing.T) {
	xml := `<tv>
<channel id="ch1"><display-name>One</display-name></channel>
<programme channel="ch1" start="20260101120000" stop="20260101133000">
<title>Long Show</title><desc>d</desc><category>Movie</category>
</programme>
<programme channel="ch1" start="20260101130000" stop="20260101140000">
<title>Next Show</title><desc>d</desc><category>Movie</category>
</programme>
</tv>`
	res := Check(xml)
	if res.Diags.Count(diag.Warning) != 1 {
		t.Fatalf("diags = %v", res.Diags.Strings())
	}
	msg := res.Diags.Items[0].Message
	if !strings.Contains(msg, "Long Show") || !strings.Contains(msg, "Next Show") {
		t.Errorf("overlap message = %s", msg)
	}
}

func TestCheck_adjacentProgramsDoNotOverlap(t *testing.T) {
	xml := `<tv>
<channel id="ch1"><display-name>One</display-name></channel>
<programme channel="ch1" start="20260101120000" stop="20260101130000">
<title>First</title><desc>d</desc><category>Movie</category>
</programme>
<programme channel="ch1" start="20260101130000" stop="20260101140000">
<title>Second</title><desc>d</desc><category>Movie</category>
</programme>
</tv>`
	res := Check(xml)
	if res.Diags.Len() != 0 {
		t.Errorf("diags = %v", res.Diags.Strings())
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("20260101120000 +0200")
	if !ok {
		t.Fatal("parse failed")
	}
	// The zone suffix is accepted but ignored for ordering.
	other, _ := ParseTimestamp("20260101120000 -0500")
	if !ts.Equal(other) {
		t.Errorf("zone suffix should not affect comparison: %v vs %v", ts, other)
	}
	if _, ok := ParseTimestamp("2026-01-01 12:00"); ok {
		t.Error("dashed format must not parse")
	}
	if _, ok := ParseTimestamp(""); ok {
		t.Error("empty must not parse")
	}
}
