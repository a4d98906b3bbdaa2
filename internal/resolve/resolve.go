// Package resolve maps request URL paths into the document root and
// classifies what they point at.
package resolve

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/go-git/go-billy/v5"
)

// Kind classifies a resolved target.
type Kind int

const (
	KindMissing Kind = iota
	KindFile
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "missing"
	}
}

// ErrInvalidPath marks request paths that are rejected before any
// filesystem access: undecodable percent-encoding, embedded NUL bytes, or
// paths that would land outside the document root.
var ErrInvalidPath = errors.New("invalid request path")

// Target is the result of resolving a request path against the document
// root.
type Target struct {
	// Current is the decoded URL path, kept for display.
	Current string
	// Path is the absolute filesystem path, confined to the root.
	Path string
	// Rel is the path relative to the document root; "." for the root
	// directory itself.
	Rel string

	Kind Kind
	// Info is nil for missing targets and for the root directory.
	Info os.FileInfo
}

// Resolver resolves request paths on a filesystem rooted at the document
// root. The filesystem handle is expected to be confined to that root
// (osfs chroots by construction); the resolver additionally normalizes
// and verifies paths before touching it.
type Resolver struct {
	fs   billy.Filesystem
	root string
}

// NewResolver builds a Resolver over fs, where root is the absolute
// document root path that fs is rooted at.
func NewResolver(fs billy.Filesystem, root string) *Resolver {
	return &Resolver{fs: fs, root: root}
}

// Resolve decodes and normalizes rawPath (the percent-encoded URL path),
// confines it to the document root and classifies the result. A missing
// target is a classification, not an error; stat failures other than
// not-found are returned so they surface as server errors.
func (r *Resolver) Resolve(rawPath string) (*Target, error) {
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if strings.ContainsRune(decoded, 0) {
		return nil, fmt.Errorf("%w: NUL byte in path", ErrInvalidPath)
	}

	// path.Clean on a rooted path neutralizes any ".." traversal.
	clean := path.Clean("/" + decoded)
	rel := strings.TrimPrefix(clean, "/")

	abs, err := securejoin.SecureJoin(r.root, rel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if abs != r.root && !strings.HasPrefix(abs, r.root+string(os.PathSeparator)) {
		return nil, fmt.Errorf("%w: escapes document root", ErrInvalidPath)
	}

	t := &Target{Current: decoded, Path: abs, Rel: rel}
	if rel == "" {
		// Empty or "/"-only request path: the root directory itself. The
		// root was stat'ed as a directory at configuration time.
		t.Rel = "."
		t.Kind = KindDirectory
		return t, nil
	}

	fi, err := r.fs.Stat(rel)
	switch {
	case err == nil:
		t.Info = fi
		if fi.IsDir() {
			t.Kind = KindDirectory
		} else {
			t.Kind = KindFile
		}
	case os.IsNotExist(err):
		t.Kind = KindMissing
	case errors.Is(err, billy.ErrCrossedBoundary):
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	default:
		// Permission denied or I/O failure; never conflated with missing.
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	return t, nil
}

// LocateIndex probes the ordered index candidates inside the directory at
// dirRel and returns the root-relative path and info of the first one
// that exists. Candidates that cannot be stat'ed are skipped.
func LocateIndex(fs billy.Filesystem, dirRel string, candidates []string) (string, os.FileInfo, bool) {
	for _, name := range candidates {
		p := fs.Join(dirRel, name)
		fi, err := fs.Stat(p)
		if err != nil {
			continue
		}
		return p, fi, true
	}
	return "", nil, false
}
