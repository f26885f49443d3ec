// Package version reports which bidsfix build is running.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via ldflags. Empty values fall back to the module build
// info embedded by the Go toolchain.
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

// Info describes a build.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Modified  bool
}

// Current returns the build info, preferring ldflags over the embedded
// module and VCS stamps.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = merge(info, bi)
	}
	return info
}

func merge(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String returns the version line printed by `bidsfix version`.
func String() string {
	return Current().String()
}

func (i Info) String() string {
	v := orDefault(i.Version, "dev")
	commit := orDefault(shortCommit(i.Commit), "unknown")
	if i.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("bidsfix %s (commit: %s, built: %s)", v, commit, orDefault(i.BuildTime, "unknown"))
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
