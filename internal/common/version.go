package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

// Version information. Overridden via -ldflags at build time; when the
// binary is built without ldflags the git commit is recovered from the
// embedded build info.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

func init() {
	if GitCommit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			GitCommit = setting.Value
			return
		}
	}
}

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns the version with build metadata appended,
// shortening the commit hash to 12 characters
func GetFullVersion() string {
	commit := GitCommit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, commit)
}

// LoadVersionFromFile overrides Version from a .version file when one
// exists next to the executable or in the working directory. Returns
// the effective version either way.
func LoadVersionFromFile() string {
	candidates := make([]string, 0, 2)
	if exePath, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exePath), ".version"))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".version"))
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			Version = v
			break
		}
	}

	return Version
}
