// Package version provides build information for the emulator binaries
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const unknown = "unknown"

var (
	// Set at build time via -ldflags "-X goinvaders/internal/version.Version=..."
	Version   = "dev"
	GitCommit = unknown
	BuildTime = unknown
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
	Modified  bool   `json:"modified"`
}

// GetBuildInfo returns the build information, filling gaps from the VCS
// stamp the go command embeds
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == unknown {
					info.GitCommit = setting.Value
				}
			case "vcs.time":
				if info.BuildTime == unknown {
					info.BuildTime = setting.Value
				}
			case "vcs.modified":
				info.Modified = setting.Value == "true"
			}
		}
	}

	return info
}

// ShortCommit returns the first seven characters of the commit hash
func (b BuildInfo) ShortCommit() string {
	if len(b.GitCommit) > 7 {
		return b.GitCommit[:7]
	}
	return b.GitCommit
}

// GetVersion returns a simple version string
func GetVersion() string {
	if Version == "dev" {
		info := GetBuildInfo()
		if info.GitCommit != unknown {
			return "dev-" + info.ShortCommit()
		}
	}
	return Version
}

// Describe returns a one-line version string for the named program
func Describe(program string) string {
	info := GetBuildInfo()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s version %s", program, info.Version)

	if info.GitCommit != unknown {
		fmt.Fprintf(&sb, " (commit %s", info.ShortCommit())
		if info.Modified {
			sb.WriteString(", modified")
		}
		sb.WriteString(")")
	}

	if info.BuildTime != unknown {
		if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			fmt.Fprintf(&sb, " built on %s", t.UTC().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Fprintf(&sb, " built on %s", info.BuildTime)
		}
	}

	fmt.Fprintf(&sb, " with %s for %s/%s", info.GoVersion, info.Platform, info.Arch)
	return sb.String()
}

// PrintBuildInfo writes the build information as a table
func PrintBuildInfo(w io.Writer, program string) {
	info := GetBuildInfo()

	fmt.Fprintf(w, "%s - Space Invaders arcade emulator\n", program)
	fmt.Fprintf(w, "Version:     %s\n", info.Version)
	fmt.Fprintf(w, "Git Commit:  %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", info.BuildTime)
	fmt.Fprintf(w, "Go Version:  %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", info.Platform, info.Arch)
}
