package server

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/playlistdoctor/playlist-doctor/internal/crossref"
	"github.com/playlistdoctor/playlist-doctor/internal/diag"
	"github.com/playlistdoctor/playlist-doctor/internal/guide"
	"github.com/playlistdoctor/playlist-doctor/internal/playlist"
	"github.com/playlistdoctor/playlist-doctor/internal/store"
)

const maxUploadBytes = 64 << 20

type diagView struct {
	Class string
	Text  string
}

type resultView struct {
	Mode          string
	ChannelCount  int
	ErrorCount    int
	WarningCount  int
	FixCount      int
	DownloadID    string
	PlaylistDiags []diagView
	GuideChecked  bool
	GuideDiags    []diagView
	CompatDiags   []diagView
	Advisories    []string
}

func diagViews(list *diag.List) []diagView {
	if list == nil {
		return nil
	}
	out := make([]diagView, 0, list.Len())
	for _, d := range list.Items {
		out = append(out, diagView{
			Class: strings.ToLower(d.Severity.String()),
			Text:  d.String(),
		})
	}
	return out
}

func (s *Server) serveIndex() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.renderIndex(w, "")
	})
}

func (s *Server) renderIndex(w http.ResponseWriter, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if errMsg != "" {
		w.WriteHeader(http.StatusBadRequest)
	}
	data := struct {
		Mode  string
		Error string
	}{Mode: s.DefaultMode.String(), Error: errMsg}
	if err := pageTemplates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("render index: %v", err)
	}
}

func (s *Server) serveAnalyze() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			s.renderIndex(w, fmt.Sprintf("Could not read upload: %v", err))
			return
		}

		mode := s.DefaultMode
		if v := r.FormValue("mode"); v != "" {
			mode = playlist.ParseMode(v)
		}

		m3uText, m3uName, err := s.readInput(r, "m3u_file", "m3u_url", []string{".m3u", ".m3u8"})
		if err != nil {
			s.renderIndex(w, err.Error())
			return
		}
		if m3uText == "" {
			s.renderIndex(w, "Provide a playlist file or URL.")
			return
		}
		epgText, _, err := s.readInput(r, "epg_file", "epg_url", []string{".xml", ".xmltv"})
		if err != nil {
			s.renderIndex(w, err.Error())
			return
		}

		checker := playlist.Checker{Mode: mode, ChannelCap: s.ChannelCap}
		plRes := checker.Check(m3uText)
		s.Metrics.Analyses.WithLabelValues("playlist", mode.String()).Inc()
		s.Metrics.ObserveDiags(plRes.Diags)

		view := resultView{
			Mode:          mode.String(),
			ChannelCount:  len(plRes.Entries),
			ErrorCount:    plRes.Diags.Count(diag.Error),
			WarningCount:  plRes.Diags.Count(diag.Warning),
			FixCount:      len(plRes.Fixes),
			PlaylistDiags: diagViews(plRes.Diags),
		}

		if epgText != "" {
			gRes := guide.Check(epgText)
			s.Metrics.Analyses.WithLabelValues("guide", mode.String()).Inc()
			s.Metrics.ObserveDiags(gRes.Diags)

			compat, advisories := crossref.Check(plRes.Entries, gRes.Channels)
			s.Metrics.Analyses.WithLabelValues("crossref", mode.String()).Inc()
			s.Metrics.ObserveDiags(compat)

			view.GuideChecked = true
			view.GuideDiags = diagViews(gRes.Diags)
			view.CompatDiags = diagViews(compat)
			view.Advisories = advisories
			view.ErrorCount += gRes.Diags.Count(diag.Error) + compat.Count(diag.Error)
			view.WarningCount += gRes.Diags.Count(diag.Warning) + compat.Count(diag.Warning)
		}

		if len(plRes.Fixes) > 0 {
			fixes, err := playlist.MarshalFixes(plRes.Fixes)
			if err != nil {
				log.Printf("encode fixes: %v", err)
			} else {
				id, err := s.Store.Put(store.Record{
					Name:    m3uName,
					Content: m3uText,
					Fixes:   fixes,
				})
				if err != nil {
					log.Printf("store result: %v", err)
				} else {
					view.DownloadID = id
				}
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplates.ExecuteTemplate(w, "result.html", view); err != nil {
			log.Printf("render result: %v", err)
		}
	})
}

// readInput returns the document supplied either as an upload or a URL, along
// with the name to use for it. Empty input is not an error; the caller decides
// whether the document is required.
func (s *Server) readInput(r *http.Request, fileField, urlField string, exts []string) (string, string, error) {
	file, header, err := r.FormFile(fileField)
	switch err {
	case nil:
		defer file.Close()
		if !extAllowed(header.Filename, exts) {
			return "", "", fmt.Errorf("%s: unsupported file type (expected %s)", header.Filename, strings.Join(exts, " or "))
		}
		text, err := readUpload(file)
		if err != nil {
			return "", "", fmt.Errorf("read %s: %w", header.Filename, err)
		}
		return text, header.Filename, nil
	case http.ErrMissingFile:
	default:
		return "", "", fmt.Errorf("read upload: %w", err)
	}

	rawURL := strings.TrimSpace(r.FormValue(urlField))
	if rawURL == "" {
		return "", "", nil
	}
	start := time.Now()
	body, err := s.Fetcher.Fetch(r.Context(), rawURL)
	s.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", "", err
	}
	return string(body), path.Base(rawURL), nil
}

func readUpload(f multipart.File) (string, error) {
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > maxUploadBytes {
		return "", fmt.Errorf("file exceeds %d byte limit", maxUploadBytes)
	}
	return string(data), nil
}

func extAllowed(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func (s *Server) serveDownload() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/download/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		rec, err := s.Store.Get(id)
		if err == store.ErrNotFound {
			http.Error(w, "download expired or unknown", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("load record %s: %v", id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		fixes, err := playlist.UnmarshalFixes(rec.Fixes)
		if err != nil {
			log.Printf("decode fixes for %s: %v", id, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		fixed, applied := playlist.Apply(rec.Content, fixes)
		s.Metrics.FixesApplied.Add(float64(applied))

		name := downloadName(rec.Name)
		w.Header().Set("Content-Type", "application/x-mpegurl")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		io.WriteString(w, fixed)
	})
}

func downloadName(orig string) string {
	orig = path.Base(strings.TrimSpace(orig))
	if orig == "" || orig == "." || orig == "/" {
		return "fixed_playlist.m3u"
	}
	return "fixed_" + orig
}
