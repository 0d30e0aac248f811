// SPDX-License-Identifier: MIT
//
// Package build provides the build information of the running binary. The
// application name, build timestamp, Git commit hash and semantic version are
// embedded at compile time using linker flags:
//
//	go build -ldflags "-X lcdspectrum/pkg/build.buildName=lcdspectrum \
//	  -X lcdspectrum/pkg/build.buildVersion=0.3.0 ..."
//
// Builds without linker flags fall back to the module build info recorded by
// the Go toolchain. Every process also gets a random run id, which log lines
// and telemetry receivers use to tell restarts apart.
package build

import (
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
)

const (
	defaultName = "lcdspectrum"
	description = "Audio spectrum bar graph for a 320x240 RGB565 panel"
	unknown     = "unknown"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
	RunID       string
}

// Package-level variables for build information, populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        defaultName,
		Description: description,
		Time:        unknown,
		Commit:      unknown,
		Version:     unknown,
	}

	readBuildInfo = debug.ReadBuildInfo
)

// Initialize fills in the build information and draws a new run id. Linker
// flags are all or nothing: setting some but not all of them is an error.
func Initialize() error {
	set := 0
	for _, v := range []string{buildName, buildTime, buildCommit, buildVersion} {
		if v != "" {
			set++
		}
	}

	switch set {
	case 4:
		buildFlags.Name = buildName
		buildFlags.Time = buildTime
		buildFlags.Commit = buildCommit
		buildFlags.Version = buildVersion
	case 0:
		fromBuildInfo(buildFlags)
	default:
		return fmt.Errorf("incomplete build flags: name=%q time=%q commit=%q version=%q",
			buildName, buildTime, buildCommit, buildVersion)
	}

	buildFlags.RunID = uuid.NewString()
	return nil
}

func fromBuildInfo(f *ldFlags) {
	info, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		f.Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			f.Commit = s.Value
		case "vcs.time":
			f.Time = s.Value
		}
	}
}

// GetBuildFlags returns the current build information. Initialize() must be
// called first for the run id to be set.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String summarizes the build for start-up logs.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, run %s)", f.Name, f.Version, f.Commit, f.Time, f.RunID)
}
