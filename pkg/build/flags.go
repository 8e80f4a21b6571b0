// SPDX-License-Identifier: MIT
//
// Package build carries metadata embedded at link time, e.g.
//
//	go build -ldflags "-X enginesound/pkg/build.buildName=enginesound \
//	  -X enginesound/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds run without ldflags and report "dev"/"unknown".
package build

import (
	"errors"
	"fmt"
)

const defaultDescription = "Real-time engine sound synthesizer"

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = &Info{
		Name:        "enginesound",
		Description: defaultDescription,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
)

// Initialize copies the linker-provided values into the build info. Every
// missing value is reported in the returned error; values that were set are
// applied regardless, so callers may treat the error as a warning.
func Initialize() error {
	var errs []error
	set := func(dst *string, v, flag string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = v
	}

	set(&buildInfo.Name, buildName, "BuildName")
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")

	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}

// String formats the info for --version output.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
