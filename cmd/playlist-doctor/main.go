// Command playlist-doctor: validate and repair IPTV playlists (M3U) and
// program guides (XMLTV).
//
//	check  Analyze a playlist and optional guide, print the report
//	fix    Analyze a playlist and write the repaired copy
//	serve  Run the web front end (upload form, /metrics, /healthz)
//	probe  Probe stream URLs and report status + latency
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/playlistdoctor/playlist-doctor/internal/config"
	"github.com/playlistdoctor/playlist-doctor/internal/crossref"
	"github.com/playlistdoctor/playlist-doctor/internal/diag"
	"github.com/playlistdoctor/playlist-doctor/internal/fetch"
	"github.com/playlistdoctor/playlist-doctor/internal/guide"
	"github.com/playlistdoctor/playlist-doctor/internal/playlist"
	"github.com/playlistdoctor/playlist-doctor/internal/server"
	"github.com/playlistdoctor/playlist-doctor/internal/store"
)

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[playlist-doctor] ")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkM3U := checkCmd.String("m3u", "", "Playlist path or URL (required)")
	checkEPG := checkCmd.String("epg", "", "Guide path or URL (optional)")
	checkMode := checkCmd.String("mode", "", "Repair mode: basic or advanced (default: PLAYLIST_DOCTOR_MODE or advanced)")
	checkJSON := checkCmd.Bool("json", false, "Emit the report as JSON")

	fixCmd := flag.NewFlagSet("fix", flag.ExitOnError)
	fixM3U := fixCmd.String("m3u", "", "Playlist path or URL (required)")
	fixMode := fixCmd.String("mode", "", "Repair mode: basic or advanced (default: PLAYLIST_DOCTOR_MODE or advanced)")
	fixOut := fixCmd.String("o", "", "Output path (default: stdout)")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default: PLAYLIST_DOCTOR_ADDR or :8080)")

	probeCmd := flag.NewFlagSet("probe", flag.ExitOnError)
	probeURLs := probeCmd.String("urls", "", "Comma-separated stream URLs to probe")
	probeM3U := probeCmd.String("m3u", "", "Probe every stream URL in this playlist instead of -urls")
	probeTimeout := probeCmd.Duration("timeout", 10*time.Second, "Timeout per URL")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <check|fix|serve|probe> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  check  Analyze playlist (+ optional guide), print report\n")
		fmt.Fprintf(os.Stderr, "  fix    Analyze playlist, write repaired copy\n")
		fmt.Fprintf(os.Stderr, "  serve  Run the web front end\n")
		fmt.Fprintf(os.Stderr, "  probe  Probe stream URLs, report status and latency\n")
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		if *checkM3U == "" {
			log.Fatal("check: -m3u is required")
		}
		if err := runCheck(cfg, *checkM3U, *checkEPG, modeOr(cfg, *checkMode), *checkJSON); err != nil {
			log.Fatalf("check: %v", err)
		}

	case "fix":
		_ = fixCmd.Parse(os.Args[2:])
		if *fixM3U == "" {
			log.Fatal("fix: -m3u is required")
		}
		if err := runFix(cfg, *fixM3U, modeOr(cfg, *fixMode), *fixOut); err != nil {
			log.Fatalf("fix: %v", err)
		}

	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runServe(ctx, cfg, *serveAddr); err != nil {
			log.Fatalf("serve: %v", err)
		}

	case "probe":
		_ = probeCmd.Parse(os.Args[2:])
		if err := runProbe(cfg, *probeURLs, *probeM3U, *probeTimeout); err != nil {
			log.Fatalf("probe: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

func modeOr(cfg *config.Config, flagVal string) playlist.Mode {
	if flagVal != "" {
		return playlist.ParseMode(flagVal)
	}
	return playlist.ParseMode(cfg.Mode)
}

func newFetcher(cfg *config.Config) *fetch.Fetcher {
	return &fetch.Fetcher{
		MaxBodyBytes: cfg.MaxBodyBytes,
		PerHostRate:  cfg.RatePerHost,
	}
}

// loadDocument reads a local file or fetches a URL, depending on the shape of
// src.
func loadDocument(ctx context.Context, f *fetch.Fetcher, src string) (string, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		body, err := f.Fetch(ctx, src)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// checkReport is the JSON shape of a check run.
type checkReport struct {
	Mode        string            `json:"mode"`
	Channels    []playlist.Entry  `json:"channels"`
	Playlist    []diag.Diagnostic `json:"playlist_diagnostics"`
	Guide       []diag.Diagnostic `json:"guide_diagnostics,omitempty"`
	Compat      []diag.Diagnostic `json:"compatibility_diagnostics,omitempty"`
	Advisories  []string          `json:"advisories,omitempty"`
	FixesStaged int               `json:"fixes_staged"`
}

func runCheck(cfg *config.Config, m3uSrc, epgSrc string, mode playlist.Mode, asJSON bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()
	f := newFetcher(cfg)

	m3uText, err := loadDocument(ctx, f, m3uSrc)
	if err != nil {
		return err
	}
	checker := playlist.Checker{Mode: mode, ChannelCap: cfg.ChannelCap}
	plRes := checker.Check(m3uText)

	var gRes guide.Result
	var compat *diag.List
	var advs []string
	if epgSrc != "" {
		epgText, err := loadDocument(ctx, f, epgSrc)
		if err != nil {
			return err
		}
		gRes = guide.Check(epgText)
		compat, advs = crossref.Check(plRes.Entries, gRes.Channels)
	}

	if asJSON {
		rep := checkReport{
			Mode:        mode.String(),
			Channels:    plRes.Entries,
			Playlist:    plRes.Diags.Items,
			Advisories:  advs,
			FixesStaged: len(plRes.Fixes),
		}
		if gRes.Diags != nil {
			rep.Guide = gRes.Diags.Items
		}
		if compat != nil {
			rep.Compat = compat.Items
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	printSection := func(title string, list *diag.List) {
		if list == nil {
			return
		}
		fmt.Printf("== %s: %d finding(s) ==\n", title, list.Len())
		for _, line := range list.Strings() {
			fmt.Println(line)
		}
	}
	fmt.Printf("Parsed %d channel(s), %d fix(es) staged (mode %s)\n", len(plRes.Entries), len(plRes.Fixes), mode)
	printSection("Playlist", plRes.Diags)
	printSection("Guide", gRes.Diags)
	printSection("Compatibility", compat)
	if len(advs) > 0 {
		fmt.Println("== Advisories ==")
		for _, a := range advs {
			fmt.Println(a)
		}
	}
	if plRes.Diags.Count(diag.Error) > 0 {
		os.Exit(2)
	}
	return nil
}

func runFix(cfg *config.Config, m3uSrc string, mode playlist.Mode, outPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	m3uText, err := loadDocument(ctx, newFetcher(cfg), m3uSrc)
	if err != nil {
		return err
	}
	checker := playlist.Checker{Mode: mode, ChannelCap: cfg.ChannelCap}
	res := checker.Check(m3uText)
	fixed, applied := playlist.Apply(m3uText, res.Fixes)
	log.Printf("%d fix(es) staged, %d applied", len(res.Fixes), applied)

	if outPath == "" || outPath == "-" {
		_, err = os.Stdout.WriteString(fixed)
		return err
	}
	return os.WriteFile(outPath, []byte(fixed), 0o644)
}

func runServe(ctx context.Context, cfg *config.Config, addrOverride string) error {
	addr := cfg.Addr
	if addrOverride != "" {
		addr = addrOverride
	}

	var st store.Store
	if cfg.StorePath != "" {
		db, err := store.OpenSQLite(cfg.StorePath)
		if err != nil {
			return err
		}
		defer db.Close()
		go sweepLoop(ctx, cfg.StoreTTL, func() {
			if n, err := db.Sweep(cfg.StoreTTL); err != nil {
				log.Printf("store sweep: %v", err)
			} else if n > 0 {
				log.Printf("store sweep: removed %d expired record(s)", n)
			}
		})
		st = db
	} else {
		mem := store.NewMemory()
		go sweepLoop(ctx, cfg.StoreTTL, func() {
			if n := mem.Sweep(cfg.StoreTTL); n > 0 {
				log.Printf("store sweep: removed %d expired record(s)", n)
			}
		})
		st = mem
	}

	srv := &server.Server{
		Addr:        addr,
		BaseURL:     cfg.BaseURL,
		DefaultMode: playlist.ParseMode(cfg.Mode),
		ChannelCap:  cfg.ChannelCap,
		Fetcher:     newFetcher(cfg),
		Store:       st,
		Metrics:     server.NewMetrics(),
	}
	return srv.Run(ctx)
}

func sweepLoop(ctx context.Context, ttl time.Duration, sweep func()) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweep()
		}
	}
}

func runProbe(cfg *config.Config, urlsCSV, m3uSrc string, timeout time.Duration) error {
	f := newFetcher(cfg)

	var urls []string
	switch {
	case m3uSrc != "":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
		text, err := loadDocument(ctx, f, m3uSrc)
		cancel()
		if err != nil {
			return err
		}
		res := playlist.Check(text, playlist.ModeBasic)
		for _, e := range res.Entries {
			if e.StreamURL != "" {
				urls = append(urls, e.StreamURL)
			}
		}
	case urlsCSV != "":
		for _, u := range strings.Split(urlsCSV, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		return fmt.Errorf("nothing to probe: pass -urls or -m3u")
	}

	ok := 0
	for _, u := range urls {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		res := f.Probe(ctx, u)
		cancel()
		if res.OK {
			ok++
			fmt.Printf("OK   %-60s status=%d latency=%s\n", res.URL, res.Status, res.Latency.Round(time.Millisecond))
		} else if res.Error != "" {
			fmt.Printf("FAIL %-60s error=%s\n", res.URL, res.Error)
		} else {
			fmt.Printf("FAIL %-60s status=%d latency=%s\n", res.URL, res.Status, res.Latency.Round(time.Millisecond))
		}
	}
	fmt.Printf("%d/%d reachable\n", ok, len(urls))
	if ok == 0 {
		os.Exit(2)
	}
	return nil
}
