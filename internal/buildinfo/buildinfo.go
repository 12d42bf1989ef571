// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

import "runtime/debug"

// Version is the release tag for this build.
// Inject via: -X github.com/garyellow/tucurso-bot/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/tucurso-bot/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/tucurso-bot/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Info is the JSON shape reported by /readyz.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

// Get returns the injected values, filling the commit from the embedded VCS
// stamp when -ldflags were not used.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, BuildDate: BuildDate}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.Commit = s.Value
				}
			}
		}
	}
	return info
}

// Release is the identifier sent to Sentry when none is configured.
func Release() string {
	info := Get()
	if info.Commit == "" {
		return "tucurso-bot@" + info.Version
	}
	short := info.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	return "tucurso-bot@" + info.Version + "+" + short
}
