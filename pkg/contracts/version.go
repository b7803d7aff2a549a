// Package contracts carries the version facts shared between the HTTP
// API, the WebSocket protocol, and the CLI. Wire-level types live in
// the api, domain, and events subpackages.
package contracts

import (
	"fmt"
	"runtime"
)

// Version is the semantic version of the remcli binary.
const Version = "0.1.0"

const (
	// DataFormatVersion tracks the report file layout. It bumps when
	// report columns or file names change shape.
	DataFormatVersion = "v1"

	// APIVersion tracks the HTTP and WebSocket surface.
	APIVersion = "v1"
)

// Release builds stamp these through -ldflags. A plain go build leaves
// them at "unknown".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo collects the compile-time and runtime facts served by
// GET /api/version and printed for -version.
type VersionInfo struct {
	Version    string `json:"version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	DataFormat string `json:"data_format"`
	APIVersion string `json:"api_version"`
}

// BuildInfo returns the version facts for the running binary.
func BuildInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		DataFormat: DataFormatVersion,
		APIVersion: APIVersion,
	}
}

// FullVersion renders the one-line form printed for -version.
func FullVersion() string {
	info := BuildInfo()
	return fmt.Sprintf("remcli v%s (built %s, commit %s, %s %s/%s)",
		info.Version, info.BuildTime, info.GitCommit,
		info.GoVersion, info.OS, info.Arch)
}
