// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/bidsfix/internal/sidecar"
)

// DatasetIndex defines the secondary port for querying a BIDS dataset.
type DatasetIndex interface {
	// Query returns the acquisitions matching every set filter field,
	// ordered by relative path.
	Query(ctx context.Context, filter AcquisitionFilter) ([]*AcquisitionRecord, error)
}

// DatasetScanner defines the secondary port for a full walk of a dataset tree.
type DatasetScanner interface {
	// Root returns the absolute dataset root.
	Root() string

	// Records returns every acquisition in the tree, ordered by relative path.
	Records(ctx context.Context) ([]*AcquisitionRecord, error)
}

// IndexStore defines the secondary port for a persisted dataset index.
type IndexStore interface {
	DatasetIndex

	// Replace discards the stored index and stores the given records.
	Replace(ctx context.Context, root string, records []*AcquisitionRecord) error

	// Meta returns information about the stored index.
	Meta(ctx context.Context) (*IndexMeta, error)
}

// AcquisitionRecord represents one dataset file and its entities.
type AcquisitionRecord struct {
	Subject     string
	Session     string
	Datatype    string // e.g., "func", "fmap", "anat"
	Task        string
	Acquisition string
	Run         string // raw label, e.g. "1" or "01"; empty when absent
	Direction   string
	Suffix      string // e.g., "bold", "epi"
	Extension   string // with leading dot, e.g. ".nii.gz"
	RelPath     string // slash-separated, relative to the dataset root
	Path        string // absolute path
}

// AcquisitionFilter contains filter options for querying acquisitions.
// Empty fields match anything.
type AcquisitionFilter struct {
	Subject     string
	Session     string
	Datatype    string
	Task        string
	TaskPattern *regexp.Regexp // matched anywhere in the task label
	Run         int            // 0 matches any run, including none
	Extension   string         // leading dot optional
}

// Matches reports whether the record satisfies the filter.
func (f AcquisitionFilter) Matches(r *AcquisitionRecord) bool {
	if f.Subject != "" && r.Subject != f.Subject {
		return false
	}
	if f.Session != "" && r.Session != f.Session {
		return false
	}
	if f.Datatype != "" && r.Datatype != f.Datatype {
		return false
	}
	if f.Task != "" && r.Task != f.Task {
		return false
	}
	if f.TaskPattern != nil && !f.TaskPattern.MatchString(r.Task) {
		return false
	}
	if f.Run != 0 {
		n, err := strconv.Atoi(r.Run)
		if err != nil || n != f.Run {
			return false
		}
	}
	if f.Extension != "" && r.Extension != NormalizeExtension(f.Extension) {
		return false
	}
	return true
}

// NormalizeExtension adds the leading dot to an extension if missing.
func NormalizeExtension(ext string) string {
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

// IndexMeta describes a persisted dataset index.
type IndexMeta struct {
	Root        string
	BuiltAt     string
	RecordCount int
}

// SidecarStore defines the secondary port for sidecar document storage.
type SidecarStore interface {
	// Load reads and decodes a sidecar.
	Load(ctx context.Context, path string) (sidecar.Document, error)

	// Save replaces the sidecar with the encoded document.
	Save(ctx context.Context, path string, doc sidecar.Document) error

	// List returns every file below dir (recursively) ending in ext.
	// A missing directory yields no files.
	List(ctx context.Context, dir, ext string) ([]string, error)
}
