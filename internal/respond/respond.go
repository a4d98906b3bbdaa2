// Package respond renders listing results and error pages, negotiating
// between the HTML template and a JSON body.
package respond

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"example.com/dirserve/internal/config"
	"example.com/dirserve/internal/dispatch"
	"example.com/dirserve/internal/listing"
	"example.com/dirserve/internal/logger"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// styles maps the configurable style selector to inline CSS.
var styles = map[string]template.CSS{
	"default": `body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}` +
		`th,td{padding:2px 12px;text-align:left}th{border-bottom:1px solid #999}` +
		`a{text-decoration:none}a:hover{text-decoration:underline}`,
	"dark": `body{font-family:sans-serif;margin:2em;background:#1d1f21;color:#c5c8c6}` +
		`table{border-collapse:collapse}th,td{padding:2px 12px;text-align:left}` +
		`th{border-bottom:1px solid #555}a{color:#81a2be;text-decoration:none}` +
		`a:hover{text-decoration:underline}`,
}

const defaultTemplate = "table"

// Responder renders listings per the serve configuration: the selected
// template and style for HTML, or a JSON body when JSON mode is enabled
// and the client asked for it.
type Responder struct {
	cfg  *config.ServeConfig
	log  *logger.Logger
	tmpl *template.Template
	name string
	css  template.CSS
}

// NewResponder parses the embedded templates and validates the style and
// template selectors from the configuration.
func NewResponder(cfg *config.ServeConfig, lg *logger.Logger) (*Responder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serve configuration cannot be nil")
	}
	if lg == nil {
		lg = logger.NewDiscardLogger()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("respond: failed to parse listing templates: %w", err)
	}

	name := defaultTemplate
	if cfg.Render != nil && cfg.Render.Template != "" {
		name = cfg.Render.Template
	}
	if tmpl.Lookup(name) == nil {
		return nil, fmt.Errorf("respond: unknown listing template %q", name)
	}

	styleName := cfg.Style
	if styleName == "" {
		styleName = "default"
	}
	css, ok := styles[styleName]
	if !ok {
		return nil, fmt.Errorf("respond: unknown style %q", styleName)
	}

	return &Responder{cfg: cfg, log: lg, tmpl: tmpl, name: name, css: css}, nil
}

// listingView is the data handed to the listing templates.
type listingView struct {
	Current string
	Files   []listing.Entry
	Style   template.CSS
}

// RenderListing implements dispatch.Responder.
func (r *Responder) RenderListing(rs *dispatch.ResponseState, req *http.Request, l *listing.Listing) error {
	if rs.Written() {
		return nil
	}

	if r.cfg.JSONEnabled() && PrefersJSON(req.Header.Get("Accept")) {
		return r.renderJSON(rs, req, l)
	}
	return r.renderHTML(rs, req, l)
}

func (r *Responder) renderJSON(rs *dispatch.ResponseState, req *http.Request, l *listing.Listing) error {
	body, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("respond: failed to marshal listing: %w", err)
	}

	rs.Header().Set("Content-Type", "application/json; charset=utf-8")
	rs.Header().Set("Content-Length", strconv.Itoa(len(body)))
	rs.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return nil
	}
	_, err = rs.Write(body)
	return err
}

func (r *Responder) renderHTML(rs *dispatch.ResponseState, req *http.Request, l *listing.Listing) error {
	var buf bytes.Buffer
	view := listingView{Current: l.Current, Files: l.Files, Style: r.css}
	if err := r.tmpl.ExecuteTemplate(&buf, r.name, view); err != nil {
		return fmt.Errorf("respond: failed to render listing for %s: %w", l.Current, err)
	}

	rs.Header().Set("Content-Type", "text/html; charset=utf-8")
	rs.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	rs.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return nil
	}
	_, err := rs.Write(buf.Bytes())
	return err
}
