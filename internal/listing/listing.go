// Package listing builds the directory listing data handed to the
// responder.
package listing

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5"

	"example.com/dirserve/internal/mimetype"
)

// DirectoryType is the literal type string assigned to directory entries.
const DirectoryType = "directory"

// ParentName is the display name of the synthesized parent entry.
const ParentName = "Parent Directory"

// Entry is one listing row. Entries are immutable once built.
type Entry struct {
	URL   string
	Name  string
	Size  int64
	Type  string
	Mtime string

	// Parent marks the synthesized "Parent Directory" entry, whose size,
	// type and mtime serialize as blank strings to stay visually distinct.
	Parent bool
}

// IsDir reports whether the entry represents a directory.
func (e Entry) IsDir() bool { return e.Type == DirectoryType }

// DisplaySize renders the size column: blank for the parent entry, "-"
// for directories, a humanized byte count for files.
func (e Entry) DisplaySize() string {
	if e.Parent {
		return ""
	}
	if e.IsDir() {
		return "-"
	}
	return humanize.Bytes(uint64(e.Size))
}

// MarshalJSON serializes the entry with keys url, name, size, type and
// mtime. The parent entry carries blank strings for its last three
// fields; regular entries carry a numeric size.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Parent {
		return json.Marshal(struct {
			URL   string `json:"url"`
			Name  string `json:"name"`
			Size  string `json:"size"`
			Type  string `json:"type"`
			Mtime string `json:"mtime"`
		}{URL: e.URL, Name: e.Name})
	}
	return json.Marshal(struct {
		URL   string `json:"url"`
		Name  string `json:"name"`
		Size  int64  `json:"size"`
		Type  string `json:"type"`
		Mtime string `json:"mtime"`
	}{e.URL, e.Name, e.Size, e.Type, e.Mtime})
}

// Listing is the record handed to the responder.
type Listing struct {
	Files   []Entry `json:"files"`
	Current string  `json:"current"`
}

// Builder enumerates directories into Listings.
type Builder struct {
	fs   billy.Filesystem
	mime *mimetype.Resolver
}

// NewBuilder returns a Builder reading from fs (rooted at the document
// root) and typing files through mime.
func NewBuilder(fs billy.Filesystem, mime *mimetype.Resolver) *Builder {
	return &Builder{fs: fs, mime: mime}
}

// Build enumerates the direct children of the directory at the
// root-relative path dir ("." for the root itself) and returns them as
// ordered entries for the decoded URL path current. An empty dir means
// the directory could not be resolved: the result is an empty listing,
// not an error. Enumeration failures (unreadable directory) fail the
// whole build; there is no partial listing output.
func (b *Builder) Build(dir string, current string) (*Listing, error) {
	l := &Listing{Current: current, Files: []Entry{}}
	if dir == "" {
		return l, nil
	}

	infos, err := b.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	// Byte-wise lexicographic by original basename, files and directories
	// interleaved. No locale collation, so the order is deterministic.
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name() < infos[j].Name()
	})

	if !isRootPath(current) {
		l.Files = append(l.Files, Entry{URL: "../", Name: ParentName, Parent: true})
	}

	base := strings.TrimSuffix(current, "/")
	for _, fi := range infos {
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}

		e := Entry{
			URL:   base + "/" + url.PathEscape(name),
			Name:  name,
			Mtime: fi.ModTime().UTC().Format(http.TimeFormat),
		}
		if fi.IsDir() {
			e.URL += "/"
			e.Name += "/"
			e.Type = DirectoryType
		} else {
			e.Size = fi.Size()
			e.Type = b.mime.TypeForFile(name)
		}
		l.Files = append(l.Files, e)
	}

	return l, nil
}

// isRootPath reports whether the current request path is the root, in
// which case no parent entry is synthesized.
func isRootPath(current string) bool {
	return current == "" || current == "/"
}
