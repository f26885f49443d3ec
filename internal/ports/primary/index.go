package primary

import "context"

// IndexService defines the primary port for the persisted dataset index.
type IndexService interface {
	// BuildIndex scans the dataset and replaces the stored index.
	BuildIndex(ctx context.Context) (*BuildIndexResponse, error)
}

// BuildIndexResponse contains the result of an index build.
type BuildIndexResponse struct {
	Root     string
	Records  int
	Subjects int
	Sessions int
}

// DoctorService defines the primary port for dataset sidecar checks.
type DoctorService interface {
	// CheckSidecars validates every field-map sidecar and its linkage targets.
	CheckSidecars(ctx context.Context) (*DoctorReport, error)
}

// DoctorReport lists the problems found in a dataset.
type DoctorReport struct {
	Checked  int
	Findings []Finding
}

// Finding is a single problem with a sidecar.
type Finding struct {
	RelPath string
	Problem string
}
