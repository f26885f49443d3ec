// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/example/bidsfix/internal/ports/secondary"
)

// Layout implements secondary.DatasetIndex by walking a BIDS directory tree.
// The tree is scanned once, on the first query.
type Layout struct {
	root string

	once    sync.Once
	records []*secondary.AcquisitionRecord
	scanErr error
}

// NewLayout creates a layout for the dataset rooted at root.
func NewLayout(root string) (*Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dataset root not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset root %s is not a directory", abs)
	}
	return &Layout{root: abs}, nil
}

// Root returns the absolute dataset root.
func (l *Layout) Root() string {
	return l.root
}

// Query returns the acquisitions matching the filter, ordered by relative path.
func (l *Layout) Query(ctx context.Context, filter secondary.AcquisitionFilter) ([]*secondary.AcquisitionRecord, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}

	var out []*secondary.AcquisitionRecord
	for _, r := range records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Records returns every recognised acquisition in the dataset.
func (l *Layout) Records(ctx context.Context) ([]*secondary.AcquisitionRecord, error) {
	l.once.Do(func() {
		l.records, l.scanErr = l.scan(ctx)
	})
	return l.records, l.scanErr
}

func (l *Layout) scan(ctx context.Context) ([]*secondary.AcquisitionRecord, error) {
	var records []*secondary.AcquisitionRecord

	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			// Only subject trees hold raw acquisitions; skip derivatives,
			// sourcedata, code and hidden directories.
			if !strings.Contains(rel, "/") && !strings.HasPrefix(rel, "sub-") {
				return filepath.SkipDir
			}
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if record, ok := recordFromPath(rel); ok {
			record.Path = p
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan dataset %s: %w", l.root, err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].RelPath < records[j].RelPath })
	return records, nil
}

// recordFromPath builds a record from a dataset-relative path of the form
// sub-<s>/[ses-<t>/]<datatype>/<file>.
func recordFromPath(rel string) (*secondary.AcquisitionRecord, bool) {
	parts := strings.Split(rel, "/")
	if len(parts) < 3 || len(parts) > 4 {
		return nil, false
	}
	if !strings.HasPrefix(parts[0], "sub-") {
		return nil, false
	}
	if len(parts) == 4 && !strings.HasPrefix(parts[1], "ses-") {
		return nil, false
	}

	name := parts[len(parts)-1]
	if strings.HasPrefix(name, ".") {
		return nil, false
	}
	parsed, ok := ParseFilename(name)
	if !ok {
		return nil, false
	}

	record := &secondary.AcquisitionRecord{
		Subject:     parsed.Entities["sub"],
		Session:     parsed.Entities["ses"],
		Datatype:    parts[len(parts)-2],
		Task:        parsed.Entities["task"],
		Acquisition: parsed.Entities["acq"],
		Run:         parsed.Entities["run"],
		Direction:   parsed.Entities["dir"],
		Suffix:      parsed.Suffix,
		Extension:   parsed.Extension,
		RelPath:     path.Clean(rel),
	}
	if record.Subject == "" {
		record.Subject = strings.TrimPrefix(parts[0], "sub-")
	}
	if record.Session == "" && len(parts) == 4 {
		record.Session = strings.TrimPrefix(parts[1], "ses-")
	}
	return record, true
}

// ParsedFilename is a BIDS filename split into its parts.
type ParsedFilename struct {
	Entities  map[string]string
	Suffix    string
	Extension string
}

// ParseFilename splits a BIDS filename such as
// "sub-01_ses-1_task-rest_dir-AP_run-1_bold.nii.gz" into entities, suffix and
// extension. ok is false when the name does not follow the key-value layout.
func ParseFilename(name string) (ParsedFilename, bool) {
	stem, ext := name, ""
	if i := strings.Index(name, "."); i >= 0 {
		stem, ext = name[:i], name[i:]
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return ParsedFilename{}, false
	}

	suffix := parts[len(parts)-1]
	if suffix == "" || strings.Contains(suffix, "-") {
		return ParsedFilename{}, false
	}

	entities := make(map[string]string, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		key, value, found := strings.Cut(part, "-")
		if !found || key == "" || value == "" {
			return ParsedFilename{}, false
		}
		entities[key] = value
	}
	if _, ok := entities["sub"]; !ok {
		return ParsedFilename{}, false
	}

	return ParsedFilename{
		Entities:  entities,
		Suffix:    suffix,
		Extension: ext,
	}, true
}

// Ensure Layout implements the interface
var (
	_ secondary.DatasetIndex   = (*Layout)(nil)
	_ secondary.DatasetScanner = (*Layout)(nil)
)
