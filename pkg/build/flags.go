// SPDX-License-Identifier: MIT
//
// Package build holds build metadata embedded at link time, for example:
//
//	go build -ldflags "-X voiceeq/pkg/build.buildVersion=0.2.0 -X voiceeq/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds carry no ldflags; they fall back to the defaults below
// and Initialize reports which values were missing.
package build

import (
	"errors"
	"fmt"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

const (
	defaultName        = "voiceeq"
	defaultDescription = "Snapshot a voice sample's spectrum and chart it against an EQ recommendation"
	unknown            = "unknown"
)

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        unknown,
		Commit:      unknown,
		Version:     "dev",
	}
)

// Initialize copies the ldflags variables into the build info. Missing
// values keep their development defaults; the returned error lists them so
// release pipelines can fail on it while local builds only warn.
func Initialize() error {
	var missing []error

	if buildName != "" {
		buildFlags.Name = buildName
	} else {
		missing = append(missing, errors.New("BuildName is required"))
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	} else {
		missing = append(missing, errors.New("BuildTime is required"))
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	} else {
		missing = append(missing, errors.New("BuildCommit is required"))
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	} else {
		missing = append(missing, errors.New("BuildVersion is required"))
	}

	return errors.Join(missing...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
