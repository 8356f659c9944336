// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Release builds stamp these with -ldflags -X, e.g.
//
//	-X github.com/bureau-foundation/nodescope/lib/version.GitCommit=$(git rev-parse --short HEAD)
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string `cbor:"version" json:"version"`
	Commit    string `cbor:"commit" json:"commit"`
	Dirty     bool   `cbor:"dirty" json:"dirty"`
	BuildTime string `cbor:"build_time" json:"build_time"`
	Go        string `cbor:"go" json:"go"`
}

// Current returns the stamped build information. A binary built
// without ldflags falls back to the VCS stamp the go command embeds.
func Current() Build {
	build := Build{
		Version:   Version,
		Commit:    GitCommit,
		Dirty:     GitDirty == "true",
		BuildTime: BuildTime,
		Go:        runtime.Version(),
	}
	if build.Commit == "unknown" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fillFromSettings(&build, info.Settings)
		}
	}
	return build
}

func fillFromSettings(build *Build, settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			build.Commit = setting.Value[:min(len(setting.Value), 12)]
		case "vcs.modified":
			build.Dirty = setting.Value == "true"
		case "vcs.time":
			if build.BuildTime == "unknown" {
				build.BuildTime = setting.Value
			}
		}
	}
}

// Info is the one-line form: "0.1.0-dev (abc1234-dirty, 2026-01-02T03:04:05Z)".
func Info() string {
	build := Current()
	commit := build.Commit
	if build.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", build.Version, commit, build.BuildTime)
}

// Full adds the toolchain and platform to Info, for --version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
