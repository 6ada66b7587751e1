// Package guide parses XMLTV-style program guides and validates their
// structure and timing: unique channel ids, required program fields, and
// per-channel schedule overlaps.
package guide

import (
	"encoding/xml"
	"errors"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/playlistdoctor/playlist-doctor/internal/diag"
)

// Channel is one guide channel definition.
type Channel struct {
	ID           string   `json:"id"`
	DisplayNames []string `json:"display_names,omitempty"`
	IconURL      string   `json:"icon_url,omitempty"`
}

// Program is one guide entry. Start/Stop are nil when the corresponding
// attribute was missing or unparsable; StartRaw/StopRaw keep the original
// text for messages.
type Program struct {
	ChannelID string     `json:"channel_id"`
	Start     *Timestamp `json:"start,omitempty"`
	Stop      *Timestamp `json:"stop,omitempty"`
	StartRaw  string     `json:"start_raw,omitempty"`
	StopRaw   string     `json:"stop_raw,omitempty"`
	Title     string     `json:"title"`
}

// Result is the full output of a guide check. On a malformed document Diags
// carries a single aggregate error and Channels/Programs are empty.
type Result struct {
	Diags    *diag.List
	Channels map[string]Channel
	// ChannelOrder preserves document order of Channels for deterministic
	// downstream iteration.
	ChannelOrder []string
	Programs     []Program
}

type xmlText struct {
	Text string `xml:",chardata"`
}

type xmlIcon struct {
	Src string `xml:"src,attr"`
}

type xmlChannel struct {
	ID           string    `xml:"id,attr"`
	DisplayNames []xmlText `xml:"display-name"`
	Icon         *xmlIcon  `xml:"icon"`
}

type xmlProgramme struct {
	Channel     string    `xml:"channel,attr"`
	Start       string    `xml:"start,attr"`
	Stop        string    `xml:"stop,attr"`
	SeriesID    string    `xml:"series-id,attr"`
	Titles      []xmlText `xml:"title"`
	Descs       []xmlText `xml:"desc"`
	Categories  []xmlText `xml:"category"`
	EpisodeNums []xmlText `xml:"episode-num"`
}

const unknownTitle = "Unknown Title"

// Check parses content as an XMLTV document and validates it. Parsing is
// aggregate-fatal: any XML syntax error aborts the whole analysis with one
// error diagnostic and empty results. Everything after that is non-fatal and
// becomes a diagnostic.
func Check(content string) Result {
	diags := diag.NewList(diag.SourceGuide)

	rootName, chans, progs, err := collect(strings.NewReader(content))
	if err != nil {
		diags.Errorf(0, "guide is not well-formed XML: %v", err)
		return Result{Diags: diags, Channels: map[string]Channel{}}
	}
	if rootName != "tv" {
		diags.Errorf(0, "root element is %q; expected '<tv>'", rootName)
	}

	channels := make(map[string]Channel, len(chans))
	var order []string
	seen := make(map[string]bool, len(chans))
	for _, ch := range chans {
		if ch.ID == "" {
			diags.Errorf(0, "channel element missing 'id' attribute")
			continue
		}
		if seen[ch.ID] {
			diags.Errorf(0, "duplicate channel id %q; each channel must have a unique id", ch.ID)
		} else {
			seen[ch.ID] = true
			order = append(order, ch.ID)
		}
		if len(ch.DisplayNames) == 0 {
			diags.Warnf(0, "channel %q missing 'display-name' (shown as the channel name in the guide)", ch.ID)
		}
		out := Channel{ID: ch.ID}
		for _, dn := range ch.DisplayNames {
			if t := strings.TrimSpace(dn.Text); t != "" {
				out.DisplayNames = append(out.DisplayNames, t)
			}
		}
		if ch.Icon != nil {
			out.IconURL = ch.Icon.Src
		}
		channels[ch.ID] = out
	}

	byChannel := make(map[string][]Program, len(channels))
	var programs []Program
	for _, p := range progs {
		prog := validateProgram(p, diags)
		if _, known := channels[p.Channel]; !known {
			diags.Errorf(0, "program references unknown channel id %q; channel not found in <channel> definitions", p.Channel)
			continue
		}
		programs = append(programs, prog)
		byChannel[p.Channel] = append(byChannel[p.Channel], prog)
	}

	// Overlap scan per channel, in document order for stable output. Programs
	// with equal start times keep input order (stable sort); overlap still
	// fires when a stop time runs past the next start.
	for _, id := range order {
		progsHere := byChannel[id]
		valid := progsHere[:0:0]
		for _, p := range progsHere {
			if p.Start != nil && p.Stop != nil {
				valid = append(valid, p)
			}
		}
		sort.SliceStable(valid, func(a, b int) bool {
			return valid[a].Start.Before(*valid[b].Start)
		})
		for k := 0; k+1 < len(valid); k++ {
			cur, next := valid[k], valid[k+1]
			if cur.Stop.After(*next.Start) {
				diags.Warnf(0, "overlapping programs for channel %q: %q (%s - %s) overlaps with %q (%s - %s)",
					id, cur.Title, cur.StartRaw, cur.StopRaw, next.Title, next.StartRaw, next.StopRaw)
			}
		}
	}

	return Result{Diags: diags, Channels: channels, ChannelOrder: order, Programs: programs}
}

// validateProgram checks one programme element and consolidates its findings
// into a single diagnostic naming channel, title and time range.
func validateProgram(p xmlProgramme, diags *diag.List) Program {
	title := unknownTitle
	for _, t := range p.Titles {
		if v := strings.TrimSpace(t.Text); v != "" {
			title = v
			break
		}
	}

	var findings []string
	sev := diag.Suggestion

	worsen := func(s diag.Severity) {
		if s < sev {
			sev = s
		}
	}

	if p.Channel == "" {
		findings = append(findings, "program element missing 'channel' attribute")
		worsen(diag.Error)
	}

	prog := Program{ChannelID: p.Channel, Title: title, StartRaw: p.Start, StopRaw: p.Stop}
	if p.Start == "" {
		findings = append(findings, "missing 'start' time")
		worsen(diag.Error)
	} else if ts, ok := ParseTimestamp(p.Start); ok {
		prog.Start = &ts
	} else {
		findings = append(findings, "invalid 'start' time format: '"+p.Start+"' (expected YYYYMMDDHHMMSS with optional +/-ZZZZ)")
		worsen(diag.Error)
	}
	if p.Stop == "" {
		findings = append(findings, "missing 'stop' time")
		worsen(diag.Error)
	} else if ts, ok := ParseTimestamp(p.Stop); ok {
		prog.Stop = &ts
	} else {
		findings = append(findings, "invalid 'stop' time format: '"+p.Stop+"' (expected YYYYMMDDHHMMSS with optional +/-ZZZZ)")
		worsen(diag.Error)
	}
	if prog.Start != nil && prog.Stop != nil && !prog.Start.Before(*prog.Stop) {
		findings = append(findings, "start time ("+p.Start+") is equal to or after stop time ("+p.Stop+")")
		worsen(diag.Error)
	}

	if title == unknownTitle {
		findings = append(findings, "missing 'title' (essential for guide display)")
		worsen(diag.Error)
	}

	hasDesc := false
	for _, d := range p.Descs {
		if strings.TrimSpace(d.Text) != "" {
			hasDesc = true
			break
		}
	}
	if !hasDesc {
		findings = append(findings, "suggestion: missing 'desc' (description)")
	}

	isMovie := false
	for _, c := range p.Categories {
		if strings.EqualFold(strings.TrimSpace(c.Text), "movie") {
			isMovie = true
			break
		}
	}
	if !isMovie {
		if p.SeriesID == "" {
			findings = append(findings, "suggestion: missing 'series-id' (groups TV show recordings)")
		}
		hasEp := false
		for _, e := range p.EpisodeNums {
			if strings.TrimSpace(e.Text) != "" {
				hasEp = true
				break
			}
		}
		if !hasEp {
			findings = append(findings, "suggestion: missing 'episode-num' (uniquely identifies episodes)")
		}
	}

	if len(findings) > 0 {
		startRaw, stopRaw := p.Start, p.Stop
		if startRaw == "" {
			startRaw = "N/A"
		}
		if stopRaw == "" {
			stopRaw = "N/A"
		}
		msg := "channel '" + p.Channel + "' program ('" + title + "' from " + startRaw + " to " + stopRaw + "): " + strings.Join(findings, "; ")
		switch sev {
		case diag.Error:
			diags.Errorf(0, "%s", msg)
		case diag.Warning:
			diags.Warnf(0, "%s", msg)
		default:
			diags.Suggestf(0, "%s", msg)
		}
	}

	return prog
}

// collect walks the document once, gathering channel and programme elements
// in document order. Channels are processed before programmes by the caller,
// matching the two-pass traversal of the format's reference tooling.
func collect(r io.Reader) (rootName string, chans []xmlChannel, progs []xmlProgramme, err error) {
	dec := xml.NewDecoder(r)
	// Tolerate non-UTF-8 encoding declarations; many guide feeds still ship
	// ISO-8859-1 or Windows-125x.
	dec.CharsetReader = charset.NewReaderLabel

	rootSeen := false
	for {
		tok, terr := dec.Token()
		if terr != nil {
			if errors.Is(terr, io.EOF) {
				break
			}
			return "", nil, nil, terr
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			rootSeen = true
			rootName = se.Name.Local
			continue
		}
		switch se.Name.Local {
		case "channel":
			var ch xmlChannel
			if derr := dec.DecodeElement(&ch, &se); derr != nil {
				return "", nil, nil, derr
			}
			chans = append(chans, ch)
		case "programme":
			var p xmlProgramme
			if derr := dec.DecodeElement(&p, &se); derr != nil {
				return "", nil, nil, derr
			}
			progs = append(progs, p)
		default:
			if serr := dec.Skip(); serr != nil {
				return "", nil, nil, serr
			}
		}
	}
	if !rootSeen {
		return "", nil, nil, errors.New("empty document")
	}
	return rootName, chans, progs, nil
}
