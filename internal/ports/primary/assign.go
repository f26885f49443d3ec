package primary

import "context"

// AssignService defines the primary port for linking field maps to functional runs.
type AssignService interface {
	// AssignSessions runs the pairing for each requested session.
	// On error the response still holds the sessions completed before it.
	AssignSessions(ctx context.Context, req AssignRequest) (*AssignResponse, error)

	// DiscoverSessions lists every (subject, session) pair in the dataset.
	DiscoverSessions(ctx context.Context) ([]SessionRef, error)
}

// SessionRef identifies one session of a subject, without BIDS prefixes.
type SessionRef struct {
	Subject string
	Session string
}

// AssignRequest contains parameters for an assignment run.
type AssignRequest struct {
	Sessions []SessionRef // empty means every session in the dataset
	DryRun   bool         // plan and report without writing sidecars
	Jobs     int          // sessions processed concurrently; < 2 is sequential
}

// AssignResponse contains the per-session results in request order.
type AssignResponse struct {
	Sessions []*SessionAssignment
}

// Rows returns the report rows of every session in order.
func (r *AssignResponse) Rows() []ReportRow {
	if r == nil {
		return nil
	}
	var rows []ReportRow
	for _, s := range r.Sessions {
		rows = append(rows, s.Rows...)
	}
	return rows
}

// SessionAssignment is the outcome for one session.
type SessionAssignment struct {
	Subject         string
	Session         string
	Resolved        bool   // false when the session cascade rejected the session
	Reason          string // cascade reason for unresolved sessions
	Links           int    // successful field-map pairings
	SidecarsWritten int
	SidecarsChanged int // written sidecars whose content differs from before
	Rows            []ReportRow
}

// ReportRow is one line of the assignment report.
type ReportRow struct {
	Subject   string
	Session   string
	Task      string
	Run       string
	Direction string
	Suffix    string
	RelPath   string
	Linked    bool
	Error     string
}
