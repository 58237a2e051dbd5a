package release

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/relcut/internal/logger"
)

const (
	// MarkerFilename marks that a release is in flight to avoid running
	// two pipelines against the same worktree.
	MarkerFilename = "relcut-release-marker.bin"

	// markerLifetime is the period after which a marker left behind by a
	// crashed run is considered stale.
	markerLifetime = 2 * time.Hour

	// toolProcessName is the executable name of other running pipelines.
	toolProcessName = "relcut"
)

// ErrReleaseInProgress is returned when another pipeline holds the marker.
var ErrReleaseInProgress = errors.New("another release is already in progress")

// IsReleaseRunningNow checks presence of the marker file and attempts
// recovery when it looks stale.
func IsReleaseRunningNow(ctx context.Context) bool {
	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The release marker is too old, attempting cleanup")

		if anotherPipelineRunning() {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read release marker: %v", err)

	return false
}

// anotherPipelineRunning reports whether a different relcut process exists.
func anotherPipelineRunning() bool {
	processList, err := ps.Processes()
	if err != nil {
		// Without a process listing the stale marker is left alone.
		return true
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		name := process.Executable()
		name = strings.TrimSuffix(name, filepath.Ext(name))

		if name == toolProcessName {
			return true
		}
	}

	return false
}

// createMarker claims the worktree for this pipeline.
func createMarker() error {
	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return err
	}

	return marker.Close()
}

// removeMarker releases the claim.
func removeMarker(ctx context.Context) {
	if err := os.Remove(MarkerFilename); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "failed to remove release marker", "error", err)
	}
}
