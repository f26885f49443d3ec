package primary

import "context"

// UnassignService defines the primary port for removing linkage fields.
type UnassignService interface {
	// UnassignSessions strips the linkage field from every field-map sidecar
	// of the listed sessions. Only listed sessions are touched.
	UnassignSessions(ctx context.Context, req UnassignRequest) (*UnassignResponse, error)
}

// UnassignRequest contains parameters for a removal run.
type UnassignRequest struct {
	Sessions []SessionRef
	DryRun   bool
}

// UnassignResponse contains the per-session results in request order.
type UnassignResponse struct {
	Sessions []*SessionUnassignment
}

// SessionUnassignment is the outcome for one session.
type SessionUnassignment struct {
	Subject  string
	Session  string
	Sidecars int // sidecars found and rewritten
	Removed  int // sidecars that carried the linkage field
}
