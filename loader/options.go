package loader

import (
	"path/filepath"

	"github.com/xyproto/env/v2"
	"go.uber.org/zap"
)

const (
	envSearchPath = "CILIUM_PATH"
	envMmap       = "CILIUM_MMAP"
)

// Options configures a Context.
type Options struct {
	// Logger overrides the package logger for this context.
	Logger *zap.Logger
	// SearchPaths are the directories LoadByName probes, in order.
	SearchPaths []string
	// Mmap maps files read-only instead of reading them into memory.
	// Mapped assemblies become invalid once the Context is closed.
	Mmap bool
}

// DefaultOptions returns the configuration taken from the environment:
// CILIUM_PATH for search paths and CILIUM_MMAP, which defaults to false.
func DefaultOptions() Options {
	return Options{
		SearchPaths: splitSearchPath(env.Str(envSearchPath)),
		Mmap:        defaultMmap(),
	}
}

func splitSearchPath(list string) []string {
	var dirs []string
	for _, d := range filepath.SplitList(list) {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func defaultMmap() bool {
	return env.Has(envMmap) && env.Bool(envMmap)
}
