// Package version reports what build is running. Release builds set the
// variables through ldflags; other builds fall back to the embedded VCS
// stamp and then to git.
package version

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Set with -ldflags "-X .../version.Version=...".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

var (
	once sync.Once

	// runGit and readBuildInfo are replaced in tests.
	runGit        = gitOutput
	readBuildInfo = debug.ReadBuildInfo
)

const gitTimeout = 2 * time.Second

func gitOutput(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func git(args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()
	out, err := runGit(ctx, args...)
	if err != nil {
		return ""
	}
	return out
}

// vcsStamp reads the revision and commit time embedded by the go tool.
func vcsStamp() (revision, date string) {
	info, ok := readBuildInfo()
	if !ok {
		return "", ""
	}
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
				date = t.Format(time.DateOnly)
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && dirty {
		revision += "-dirty"
	}
	return revision, date
}

func resolve() {
	once.Do(func() {
		revision, stamped := vcsStamp()

		if Commit == "" {
			Commit = revision
		}
		if Commit == "" {
			Commit = git("describe", "--always", "--dirty")
		}
		if Commit == "" {
			Commit = "unknown"
		}

		if Version == "" {
			Version = strings.TrimPrefix(git("describe", "--tags", "--abbrev=0"), "v")
		}
		if Version == "" {
			Version = "dev"
		}

		if Date == "" {
			Date = stamped
		}
		if Date == "" {
			Date = time.Now().Format(time.DateOnly)
		}
	})
}

// Reset forgets resolved values, including ones set through ldflags.
func Reset() {
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

func GetVersion() string {
	resolve()
	return Version
}

func GetCommit() string {
	resolve()
	return Commit
}

func GetDate() string {
	resolve()
	return Date
}

// Info is the one-line description printed by --version.
func Info() string {
	resolve()
	return fmt.Sprintf("opsdash %s (commit: %s, built: %s, %s/%s)",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
