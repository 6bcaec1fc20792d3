package mods

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// set by -ldflags "-X github.com/machbase/neo-polarmap/mods.versionString=..."
var (
	versionString  = "v0.0.0"
	versionGitSHA  = "-"
	buildTimestamp = "-"
)

type Version struct {
	Major  int    `json:"major"`
	Minor  int    `json:"minor"`
	Patch  int    `json:"patch"`
	Pre    string `json:"pre,omitempty"`
	GitSHA string `json:"git"`
}

var _version *Version

func GetVersion() *Version {
	if _version == nil {
		_version = parseVersion(versionString, versionGitSHA)
	}
	return _version
}

func parseVersion(str string, sha string) *Version {
	v, err := semver.NewVersion(str)
	if err != nil {
		return &Version{GitSHA: sha}
	}
	return &Version{
		Major:  int(v.Major()),
		Minor:  int(v.Minor()),
		Patch:  int(v.Patch()),
		Pre:    v.Prerelease(),
		GitSHA: sha,
	}
}

func (v *Version) String() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s = s + "-" + v.Pre
	}
	return s
}

func DisplayVersion() string {
	return strings.ToUpper(versionString)
}

func VersionString() string {
	return fmt.Sprintf("%s (%v %v)", strings.ToUpper(versionString), versionGitSHA, buildTimestamp)
}

func BuildCompiler() string {
	return runtime.Version()
}

func BuildTimestamp() string {
	return buildTimestamp
}
