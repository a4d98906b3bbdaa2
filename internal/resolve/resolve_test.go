package resolve

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

const testRoot = "/srv/www"

// newTestFS builds an in-memory tree. Entries ending in "/" become
// directories, everything else a small file.
func newTestFS(t *testing.T, entries ...string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for _, e := range entries {
		if strings.HasSuffix(e, "/") {
			if err := fs.MkdirAll(strings.TrimSuffix(e, "/"), 0755); err != nil {
				t.Fatalf("MkdirAll(%s) failed: %v", e, err)
			}
			continue
		}
		if err := util.WriteFile(fs, e, []byte("content of "+e), 0644); err != nil {
			t.Fatalf("WriteFile(%s) failed: %v", e, err)
		}
	}
	return fs
}

func TestResolve_Classification(t *testing.T) {
	fs := newTestFS(t, "a.txt", "sub/b.txt", "empty/")
	r := NewResolver(fs, testRoot)

	cases := []struct {
		rawPath  string
		wantKind Kind
		wantRel  string
	}{
		{"/a.txt", KindFile, "a.txt"},
		{"/sub", KindDirectory, "sub"},
		{"/sub/", KindDirectory, "sub"},
		{"/sub/b.txt", KindFile, "sub/b.txt"},
		{"/empty/", KindDirectory, "empty"},
		{"/nope", KindMissing, "nope"},
		{"/sub/nope.txt", KindMissing, "sub/nope.txt"},
	}
	for _, c := range cases {
		target, err := r.Resolve(c.rawPath)
		if err != nil {
			t.Errorf("Resolve(%q) failed: %v", c.rawPath, err)
			continue
		}
		if target.Kind != c.wantKind {
			t.Errorf("Resolve(%q).Kind = %v, want %v", c.rawPath, target.Kind, c.wantKind)
		}
		if target.Rel != c.wantRel {
			t.Errorf("Resolve(%q).Rel = %q, want %q", c.rawPath, target.Rel, c.wantRel)
		}
		if !strings.HasPrefix(target.Path, testRoot) {
			t.Errorf("Resolve(%q).Path = %q escapes root", c.rawPath, target.Path)
		}
	}
}

func TestResolve_RootPath(t *testing.T) {
	fs := newTestFS(t, "a.txt")
	r := NewResolver(fs, testRoot)

	for _, raw := range []string{"", "/"} {
		target, err := r.Resolve(raw)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", raw, err)
		}
		if target.Kind != KindDirectory {
			t.Errorf("Resolve(%q).Kind = %v, want directory", raw, target.Kind)
		}
		if target.Rel != "." {
			t.Errorf("Resolve(%q).Rel = %q, want .", raw, target.Rel)
		}
		if target.Path != testRoot {
			t.Errorf("Resolve(%q).Path = %q, want %q", raw, target.Path, testRoot)
		}
	}
}

func TestResolve_TraversalNeverEscapesRoot(t *testing.T) {
	fs := newTestFS(t, "a.txt", "sub/")
	r := NewResolver(fs, testRoot)

	attempts := []string{
		"/../../etc/passwd",
		"../../etc/passwd",
		"/sub/../../../etc/passwd",
		"/..%2f..%2fetc%2fpasswd",
		"/%2e%2e/%2e%2e/etc/passwd",
		"/sub/../..",
	}
	for _, raw := range attempts {
		target, err := r.Resolve(raw)
		if err != nil {
			// Rejection is acceptable; escape is not.
			continue
		}
		if target.Path != testRoot && !strings.HasPrefix(target.Path, testRoot+string(filepath.Separator)) {
			t.Errorf("Resolve(%q).Path = %q resolved outside document root", raw, target.Path)
		}
	}
}

func TestResolve_InvalidPaths(t *testing.T) {
	fs := newTestFS(t, "a.txt")
	r := NewResolver(fs, testRoot)

	for _, raw := range []string{"/%zz", "/bad%0", "/nul%00byte"} {
		_, err := r.Resolve(raw)
		if err == nil {
			t.Errorf("Resolve(%q) should fail", raw)
			continue
		}
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Resolve(%q) error = %v, want ErrInvalidPath", raw, err)
		}
	}
}

func TestResolve_DecodedDisplayPath(t *testing.T) {
	fs := newTestFS(t, "with space.txt")
	r := NewResolver(fs, testRoot)

	target, err := r.Resolve("/with%20space.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if target.Current != "/with space.txt" {
		t.Errorf("Current = %q, want decoded path", target.Current)
	}
	if target.Kind != KindFile {
		t.Errorf("Kind = %v, want file", target.Kind)
	}
}

func TestLocateIndex_Precedence(t *testing.T) {
	// Only index.htm exists: the second candidate wins.
	fs := newTestFS(t, "sub/index.htm")
	candidates := []string{"index.html", "index.htm"}

	p, fi, ok := LocateIndex(fs, "sub", candidates)
	if !ok {
		t.Fatal("LocateIndex found nothing")
	}
	if filepath.Base(p) != "index.htm" {
		t.Errorf("LocateIndex = %q, want index.htm", p)
	}
	if fi.IsDir() {
		t.Error("index.htm should be a file")
	}

	// Both exist: the first candidate wins.
	fs = newTestFS(t, "sub/index.htm", "sub/index.html")
	p, _, ok = LocateIndex(fs, "sub", candidates)
	if !ok {
		t.Fatal("LocateIndex found nothing")
	}
	if filepath.Base(p) != "index.html" {
		t.Errorf("LocateIndex = %q, want index.html", p)
	}
}

func TestLocateIndex_None(t *testing.T) {
	fs := newTestFS(t, "sub/readme.md")

	if _, _, ok := LocateIndex(fs, "sub", nil); ok {
		t.Error("empty candidate list should locate nothing")
	}
	if _, _, ok := LocateIndex(fs, "sub", []string{"index.html"}); ok {
		t.Error("no candidate exists, should locate nothing")
	}
}

func TestLocateIndex_DirectoryEntryCounts(t *testing.T) {
	// A directory named like a candidate is still an existence match;
	// the dispatcher decides what to do with it.
	fs := newTestFS(t, "sub/index.html/")
	_, fi, ok := LocateIndex(fs, "sub", []string{"index.html"})
	if !ok {
		t.Fatal("LocateIndex should match a directory entry")
	}
	if !fi.IsDir() {
		t.Error("match should be a directory")
	}
}
