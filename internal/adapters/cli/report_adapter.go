// Package cli contains thin adapters that translate command-line operations
// into service calls and render their results.
package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/bidsfix/internal/ports/primary"
)

// ReportHeader is the column header of the assignment report.
var ReportHeader = []string{"subject", "session", "task", "run", "dir", "suffix", "relpath", "fmap", "error"}

// AssignAdapter translates CLI operations to AssignService calls.
// The CSV report goes to out; the human summary goes to summary.
type AssignAdapter struct {
	service primary.AssignService
	out     io.Writer
	summary io.Writer
}

// NewAssignAdapter creates a new AssignAdapter with the given service.
func NewAssignAdapter(service primary.AssignService, out, summary io.Writer) *AssignAdapter {
	return &AssignAdapter{
		service: service,
		out:     out,
		summary: summary,
	}
}

// Assign runs the pairing and writes the report. When the run fails part way
// the rows of the completed sessions are still written before the error is
// returned.
func (a *AssignAdapter) Assign(ctx context.Context, req primary.AssignRequest) (*primary.AssignResponse, error) {
	resp, runErr := a.service.AssignSessions(ctx, req)

	if err := WriteReport(a.out, resp.Rows()); err != nil {
		return resp, fmt.Errorf("failed to write report: %w", err)
	}
	if resp != nil {
		a.writeSummary(resp, req.DryRun)
	}

	if runErr != nil {
		return resp, fmt.Errorf("assignment failed: %w", runErr)
	}
	return resp, nil
}

func (a *AssignAdapter) writeSummary(resp *primary.AssignResponse, dryRun bool) {
	var resolved, links, written, changed int
	for _, s := range resp.Sessions {
		if s.Resolved {
			resolved++
		}
		links += s.Links
		written += s.SidecarsWritten
		changed += s.SidecarsChanged
	}
	unresolved := len(resp.Sessions) - resolved

	status := color.New(color.FgGreen).Sprint("✓")
	if unresolved > 0 {
		status = color.New(color.FgYellow).Sprint("!")
	}
	fmt.Fprintf(a.summary, "%s %d sessions: %d resolved, %d need review\n", status, len(resp.Sessions), resolved, unresolved)
	if dryRun {
		fmt.Fprintf(a.summary, "  %d field-map pairs would be linked %s\n", links, color.New(color.FgCyan).Sprint("(dry run)"))
		return
	}
	fmt.Fprintf(a.summary, "  %d field-map pairs linked, %d sidecars written (%d changed)\n", links, written, changed)
}

// WriteReport writes the CSV report header and rows.
func WriteReport(w io.Writer, rows []primary.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Subject,
			r.Session,
			r.Task,
			r.Run,
			r.Direction,
			r.Suffix,
			r.RelPath,
			pyBool(r.Linked),
			r.Error,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// pyBool renders the fmap column the way existing report consumers expect.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// UnassignAdapter translates CLI operations to UnassignService calls.
type UnassignAdapter struct {
	service primary.UnassignService
	out     io.Writer
}

// NewUnassignAdapter creates a new UnassignAdapter with the given service.
func NewUnassignAdapter(service primary.UnassignService, out io.Writer) *UnassignAdapter {
	return &UnassignAdapter{
		service: service,
		out:     out,
	}
}

// Unassign strips the linkage field and lists what was done per session.
func (a *UnassignAdapter) Unassign(ctx context.Context, req primary.UnassignRequest) (*primary.UnassignResponse, error) {
	resp, runErr := a.service.UnassignSessions(ctx, req)

	if resp != nil && len(resp.Sessions) > 0 {
		w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSIDECARS\tREMOVED")
		fmt.Fprintln(w, "-------\t--------\t-------")
		for _, s := range resp.Sessions {
			fmt.Fprintf(w, "sub-%s/ses-%s\t%d\t%d\n", s.Subject, s.Session, s.Sidecars, s.Removed)
		}
		w.Flush()
	}

	if runErr != nil {
		return resp, fmt.Errorf("removal failed: %w", runErr)
	}
	if req.DryRun {
		fmt.Fprintln(a.out, color.New(color.FgCyan).Sprint("dry run: no sidecars were written"))
	}
	return resp, nil
}
