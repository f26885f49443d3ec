// Package removal contains the pure planning logic for stripping the linkage
// field from field-map sidecars of explicitly listed sessions.
package removal

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/example/bidsfix/internal/core/effects"
)

// SessionKey identifies one session of a subject.
type SessionKey struct {
	Subject string
	Session string
}

// String returns the dataset-relative session directory, e.g. "sub-01/ses-1".
func (k SessionKey) String() string {
	return path.Join("sub-"+k.Subject, "ses-"+k.Session)
}

// FmapDir returns the slash-separated field-map directory of the session.
func (k SessionKey) FmapDir() string {
	return path.Join(k.String(), "fmap")
}

// RemovalPlanInput contains pre-fetched data for linkage removal.
type RemovalPlanInput struct {
	Session   SessionKey
	Sidecars  []string // every sidecar found under the session's fmap directory
	Field     string
	Extension string // only files with this suffix are rewritten, e.g. ".json"
}

// RemovalPlan represents the planned effects for one session.
type RemovalPlan struct {
	Session    SessionKey
	SidecarOps []effects.SidecarEffect
}

// Effects returns all effects as a flat slice for execution.
func (p RemovalPlan) Effects() []effects.Effect {
	result := make([]effects.Effect, 0, len(p.SidecarOps))
	for _, e := range p.SidecarOps {
		result = append(result, e)
	}
	return result
}

// GenerateRemovalPlan creates a plan that removes the linkage field from every
// sidecar of the session. Sidecars without the field are still rewritten so
// every file ends up in the same canonical layout.
// This is a pure function - the sidecar list must be pre-fetched.
func GenerateRemovalPlan(input RemovalPlanInput) RemovalPlan {
	paths := make([]string, 0, len(input.Sidecars))
	for _, p := range input.Sidecars {
		if input.Extension != "" && !strings.HasSuffix(p, input.Extension) {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)

	plan := RemovalPlan{Session: input.Session}
	for _, p := range paths {
		plan.SidecarOps = append(plan.SidecarOps, effects.SidecarEffect{
			Operation: effects.SidecarRemoveField,
			Path:      p,
			Field:     input.Field,
		})
	}
	return plan
}

// ValidateSessionKey checks that a session key is usable as a path component.
func ValidateSessionKey(k SessionKey) error {
	for _, label := range []string{k.Subject, k.Session} {
		if label == "" {
			return fmt.Errorf("empty label in session %q", k.String())
		}
		if strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
			return fmt.Errorf("invalid label %q in session %q", label, k.String())
		}
	}
	return nil
}
