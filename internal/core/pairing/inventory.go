package pairing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NotApplicable fills report columns that have no value, e.g. the run of an
// acquisition without a run entity.
const NotApplicable = "NA"

// Acquisition is a single file of a session as seen by the pairing logic.
// Mirrored from the dataset index record to keep the core free of port imports.
type Acquisition struct {
	Subject   string
	Session   string
	Datatype  string
	Task      string
	Run       string // raw run label, e.g. "1" or "01"; empty when absent
	Direction string
	Suffix    string
	Extension string // with leading dot, e.g. ".nii.gz"
	RelPath   string // slash-separated, relative to the dataset root
	Path      string // absolute path
}

// RunNumber returns the numeric run index and whether the acquisition has one.
func (a Acquisition) RunNumber() (int, bool) {
	if a.Run == "" {
		return 0, false
	}
	n, err := strconv.Atoi(a.Run)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ReportRun returns the run column value for the report.
func (a Acquisition) ReportRun() string {
	if a.Run == "" {
		return NotApplicable
	}
	return a.Run
}

// Conventions holds the acquisition protocol rules that drive pairing.
type Conventions struct {
	RestTask         string
	TaskPattern      *regexp.Regexp
	TaskFmapRun      int
	MaxRestRuns      int
	MaxFmapRuns      int
	PairSize         int
	FuncExtension    string
	SidecarExtension string
	LinkageField     string
}

// DefaultConventions returns the HCP-style protocol: resting runs 1 and 2
// each get their own field-map pair, field-map run 3 serves the task scans.
func DefaultConventions() Conventions {
	return Conventions{
		RestTask:         "rest",
		TaskPattern:      regexp.MustCompile("gambling|WM"),
		TaskFmapRun:      3,
		MaxRestRuns:      2,
		MaxFmapRuns:      3,
		PairSize:         2,
		FuncExtension:    ".nii.gz",
		SidecarExtension: ".json",
		LinkageField:     "IntendedFor",
	}
}

// Inventory is everything the index knows about one (subject, session).
type Inventory struct {
	Subject string
	Session string
	Func    []Acquisition
	Fmaps   []Acquisition
}

// SessionFacts are the counts and selections the cascade rules evaluate.
type SessionFacts struct {
	FmapCount     int
	FmapRuns      []int
	RestRuns      []int
	RestImages    []Acquisition
	TaskImages    []Acquisition
	FuncImages    []Acquisition
	MixedRunTasks []string
}

// Facts derives the session facts from an inventory. Pure function.
func (inv Inventory) Facts(conv Conventions) SessionFacts {
	facts := SessionFacts{FmapCount: len(inv.Fmaps)}

	fmapRuns := make(map[int]bool)
	for _, f := range inv.Fmaps {
		if n, ok := f.RunNumber(); ok {
			fmapRuns[n] = true
		}
	}
	facts.FmapRuns = sortedKeys(fmapRuns)

	restRuns := make(map[int]bool)
	withRun := make(map[string]int)
	withoutRun := make(map[string]int)
	for _, a := range sortByRelPath(inv.Func) {
		if !hasExtension(a, conv.FuncExtension) {
			continue
		}
		facts.FuncImages = append(facts.FuncImages, a)

		if _, ok := a.RunNumber(); ok {
			withRun[a.Task]++
		} else {
			withoutRun[a.Task]++
		}

		switch {
		case a.Task == conv.RestTask:
			facts.RestImages = append(facts.RestImages, a)
			if n, ok := a.RunNumber(); ok {
				restRuns[n] = true
			}
		case conv.TaskPattern != nil && conv.TaskPattern.MatchString(a.Task):
			facts.TaskImages = append(facts.TaskImages, a)
		}
	}
	facts.RestRuns = sortedKeys(restRuns)

	for task := range withRun {
		if withoutRun[task] > 0 {
			facts.MixedRunTasks = append(facts.MixedRunTasks, task)
		}
	}
	sort.Strings(facts.MixedRunTasks)

	return facts
}

// fmapSidecars returns the sidecar paths of the field maps selected by keep.
func (inv Inventory) fmapSidecars(conv Conventions, keep func(Acquisition) bool) []string {
	var paths []string
	for _, f := range sortByRelPath(inv.Fmaps) {
		if !hasExtension(f, conv.SidecarExtension) || !keep(f) {
			continue
		}
		paths = append(paths, f.Path)
	}
	return paths
}

// intendedForPaths converts dataset-relative paths to the subject-relative
// form the linkage field requires.
func intendedForPaths(subject string, images []Acquisition) []string {
	prefix := "sub-" + subject + "/"
	paths := make([]string, 0, len(images))
	for _, im := range images {
		paths = append(paths, strings.TrimPrefix(im.RelPath, prefix))
	}
	return paths
}

func hasExtension(a Acquisition, ext string) bool {
	return ext == "" || a.Extension == ext
}

func runIs(n int) func(Acquisition) bool {
	return func(a Acquisition) bool {
		r, ok := a.RunNumber()
		return ok && r == n
	}
}

func anyRun(Acquisition) bool { return true }

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortByRelPath(in []Acquisition) []Acquisition {
	out := make([]Acquisition, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}
