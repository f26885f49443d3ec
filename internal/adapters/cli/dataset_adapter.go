package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/example/bidsfix/internal/ports/primary"
)

// IndexAdapter translates CLI operations to IndexService calls.
type IndexAdapter struct {
	service primary.IndexService
	out     io.Writer
}

// NewIndexAdapter creates a new IndexAdapter with the given service.
func NewIndexAdapter(service primary.IndexService, out io.Writer) *IndexAdapter {
	return &IndexAdapter{
		service: service,
		out:     out,
	}
}

// Build scans the dataset into the index and prints what was stored.
func (a *IndexAdapter) Build(ctx context.Context, dbPath string) (*primary.BuildIndexResponse, error) {
	resp, err := a.service.BuildIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	fmt.Fprintf(a.out, "%s Indexed %s\n", color.New(color.FgGreen).Sprint("✓"), resp.Root)
	fmt.Fprintf(a.out, "  Files:    %d\n", resp.Records)
	fmt.Fprintf(a.out, "  Subjects: %d\n", resp.Subjects)
	fmt.Fprintf(a.out, "  Sessions: %d\n", resp.Sessions)
	fmt.Fprintf(a.out, "  Database: %s\n", dbPath)
	return resp, nil
}

// DoctorAdapter translates CLI operations to DoctorService calls.
type DoctorAdapter struct {
	service primary.DoctorService
	out     io.Writer
}

// NewDoctorAdapter creates a new DoctorAdapter with the given service.
func NewDoctorAdapter(service primary.DoctorService, out io.Writer) *DoctorAdapter {
	return &DoctorAdapter{
		service: service,
		out:     out,
	}
}

// Check validates the dataset's field-map sidecars and prints the findings.
// Findings are returned as an error so the command exits non-zero.
func (a *DoctorAdapter) Check(ctx context.Context) (*primary.DoctorReport, error) {
	report, err := a.service.CheckSidecars(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check sidecars: %w", err)
	}

	if len(report.Findings) == 0 {
		fmt.Fprintf(a.out, "%s %d field-map sidecars checked, no problems found\n",
			color.New(color.FgGreen).Sprint("✓"), report.Checked)
		return report, nil
	}

	fmt.Fprintf(a.out, "%s %d field-map sidecars checked, %d problems found\n\n",
		color.New(color.FgRed).Sprint("✗"), report.Checked, len(report.Findings))
	last := ""
	for _, f := range report.Findings {
		if f.RelPath != last {
			fmt.Fprintln(a.out, f.RelPath)
			last = f.RelPath
		}
		fmt.Fprintf(a.out, "  %s %s\n", color.New(color.FgYellow).Sprint("!"), f.Problem)
	}
	return report, fmt.Errorf("%d sidecar problems found", len(report.Findings))
}
