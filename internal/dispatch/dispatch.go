// Package dispatch orchestrates per-request resolution: root-as-file
// shortcut, content handler first refusal, static file serving, index
// substitution and listing generation.
package dispatch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"example.com/dirserve/internal/config"
	"example.com/dirserve/internal/listing"
	"example.com/dirserve/internal/logger"
	"example.com/dirserve/internal/mimetype"
	"example.com/dirserve/internal/resolve"
)

// Outcome is the terminal state of one dispatched request.
type Outcome int

const (
	// OutcomeUnhandled means no response was written; the hosting server
	// applies its own default handling (typically 404).
	OutcomeUnhandled Outcome = iota
	OutcomeFileServed
	OutcomeIndexServed
	OutcomeListingServed
	// OutcomeHandlerServed means the content handler wrote the response.
	OutcomeHandlerServed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFileServed:
		return "file"
	case OutcomeIndexServed:
		return "index"
	case OutcomeListingServed:
		return "listing"
	case OutcomeHandlerServed:
		return "handler"
	default:
		return "unhandled"
	}
}

// ContentHandler gets first refusal on every resolved request, including
// directory and missing targets, before any static serving is attempted.
// It may write a response through rs; the dispatcher then stands down.
// A returned error is a handler failure and surfaces as a server error.
type ContentHandler interface {
	Handle(rs *ResponseState, req *http.Request, resolvedPath string) error
}

// ContentHandlerFunc adapts a function to the ContentHandler interface.
type ContentHandlerFunc func(rs *ResponseState, req *http.Request, resolvedPath string) error

func (f ContentHandlerFunc) Handle(rs *ResponseState, req *http.Request, resolvedPath string) error {
	return f(rs, req, resolvedPath)
}

// HandlerError wraps a failure from the configured content handler.
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string { return fmt.Sprintf("content handler: %v", e.Err) }
func (e *HandlerError) Unwrap() error { return e.Err }

// Responder renders listing results; the concrete implementation decides
// between HTML and JSON.
type Responder interface {
	RenderListing(rs *ResponseState, req *http.Request, l *listing.Listing) error
}

// Dispatcher routes one request through the resolution state machine.
// It holds only read-only configuration and is safe for concurrent use.
type Dispatcher struct {
	cfg       *config.ServeConfig
	fs        billy.Filesystem
	resolver  *resolve.Resolver
	builder   *listing.Builder
	mime      *mimetype.Resolver
	responder Responder
	handler   ContentHandler
	log       *logger.Logger
}

// New builds a Dispatcher serving the configured document root from the
// OS filesystem. handler may be nil.
func New(cfg *config.ServeConfig, lg *logger.Logger, responder Responder, handler ContentHandler) (*Dispatcher, error) {
	var fs billy.Filesystem
	if !cfg.RootIsFile {
		fs = osfs.New(cfg.DocumentRoot)
	}
	return NewWithFilesystem(cfg, fs, lg, responder, handler)
}

// NewWithFilesystem is New with an explicit filesystem rooted at the
// document root, so tests can run against an in-memory tree.
func NewWithFilesystem(cfg *config.ServeConfig, fs billy.Filesystem, lg *logger.Logger, responder Responder, handler ContentHandler) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serve configuration cannot be nil")
	}
	if responder == nil {
		return nil, fmt.Errorf("responder cannot be nil")
	}
	if lg == nil {
		lg = logger.NewDiscardLogger()
	}

	mimeResolver, err := mimetype.NewResolver(cfg)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to create MIME resolver: %w", err)
	}

	d := &Dispatcher{
		cfg:       cfg,
		fs:        fs,
		mime:      mimeResolver,
		responder: responder,
		handler:   handler,
		log:       lg,
	}
	if fs != nil {
		d.resolver = resolve.NewResolver(fs, cfg.DocumentRoot)
		d.builder = listing.NewBuilder(fs, mimeResolver)
	}
	return d, nil
}

// Dispatch runs the request through the state machine and reports the
// terminal outcome. OutcomeUnhandled with a nil error means the caller
// should fall through to its default not-found handling; a non-nil error
// is a server-side failure (resolve.ErrInvalidPath, permission or I/O
// errors, or a HandlerError).
func (d *Dispatcher) Dispatch(rs *ResponseState, req *http.Request) (Outcome, error) {
	// Document root configured as a single file: serve it for any request
	// path, skipping all further logic.
	if d.cfg.RootIsFile {
		return d.serveRootFile(rs, req)
	}

	target, err := d.resolver.Resolve(req.URL.EscapedPath())
	if err != nil {
		return OutcomeUnhandled, err
	}

	// The content handler always gets first refusal, even for directory
	// and missing targets.
	if d.handler != nil {
		if err := d.handler.Handle(rs, req, target.Path); err != nil {
			return OutcomeUnhandled, &HandlerError{Err: err}
		}
	}

	switch target.Kind {
	case resolve.KindFile:
		if rs.Written() {
			return OutcomeHandlerServed, nil
		}
		if err := d.serveFile(rs, req, target.Rel, target.Info); err != nil {
			return OutcomeUnhandled, err
		}
		return OutcomeFileServed, nil

	case resolve.KindDirectory:
		if rs.Written() {
			return OutcomeHandlerServed, nil
		}
		return d.serveDirectory(rs, req, target)

	default: // resolve.KindMissing
		if rs.Written() {
			return OutcomeHandlerServed, nil
		}
		d.log.Debug("dispatch: target missing, leaving request unhandled", logger.LogFields{
			"path": req.URL.Path,
		})
		return OutcomeUnhandled, nil
	}
}

// serveDirectory tries the index candidates and falls back to a
// generated listing.
func (d *Dispatcher) serveDirectory(rs *ResponseState, req *http.Request, target *resolve.Target) (Outcome, error) {
	if len(d.cfg.IndexFiles) > 0 {
		if p, fi, ok := resolve.LocateIndex(d.fs, target.Rel, d.cfg.IndexFiles); ok && !fi.IsDir() {
			d.log.Debug("dispatch: serving index file", logger.LogFields{
				"dir":   target.Rel,
				"index": p,
			})
			if err := d.serveFile(rs, req, p, fi); err != nil {
				return OutcomeUnhandled, err
			}
			return OutcomeIndexServed, nil
		}
	}

	l, err := d.builder.Build(target.Rel, target.Current)
	if err != nil {
		return OutcomeUnhandled, fmt.Errorf("listing %s: %w", target.Path, err)
	}
	if err := d.responder.RenderListing(rs, req, l); err != nil {
		return OutcomeUnhandled, err
	}
	return OutcomeListingServed, nil
}

// serveFile streams the file at the root-relative path rel. fi may be
// nil, in which case the file is stat'ed first.
func (d *Dispatcher) serveFile(rs *ResponseState, req *http.Request, rel string, fi os.FileInfo) error {
	if fi == nil {
		var err error
		fi, err = d.fs.Stat(rel)
		if err != nil {
			return err
		}
	}

	f, err := d.fs.Open(rel)
	if err != nil {
		return err
	}
	defer f.Close()

	return d.writeFileResponse(rs, req, path.Base(rel), fi.Size(), fi.ModTime(), f)
}

// serveRootFile handles the single-file document root shortcut.
func (d *Dispatcher) serveRootFile(rs *ResponseState, req *http.Request) (Outcome, error) {
	fi, err := os.Stat(d.cfg.DocumentRoot)
	if err != nil {
		return OutcomeUnhandled, err
	}
	f, err := os.Open(d.cfg.DocumentRoot)
	if err != nil {
		return OutcomeUnhandled, err
	}
	defer f.Close()

	if err := d.writeFileResponse(rs, req, filepath.Base(d.cfg.DocumentRoot), fi.Size(), fi.ModTime(), f); err != nil {
		return OutcomeUnhandled, err
	}
	return OutcomeFileServed, nil
}

// writeFileResponse writes headers and streams the body. The body is
// copied through a fixed 32KiB buffer rather than read whole into
// memory. HEAD requests get headers only.
func (d *Dispatcher) writeFileResponse(rs *ResponseState, req *http.Request, name string, size int64, modTime time.Time, r io.Reader) error {
	if rs.Written() {
		return nil
	}

	rs.Header().Set("Content-Type", d.mime.TypeForFile(name))
	rs.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	rs.Header().Set("Last-Modified", modTime.UTC().Format(http.TimeFormat))
	rs.WriteHeader(http.StatusOK)

	if req.Method == http.MethodHead {
		return nil
	}

	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(rs, r, buf); err != nil {
		// Headers are already on the wire; nothing more can be sent on
		// this response, so just report the failure.
		return fmt.Errorf("streaming %s: %w", name, err)
	}
	return nil
}
