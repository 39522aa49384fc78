package config

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

// FileName is the configuration file looked up when no --config is given.
const FileName = "storage-inspector.toml"

// SearchPaths lists candidate configuration files under each base directory,
// checking base/FileName before base/config/FileName. Duplicate directories
// are collapsed by absolute path.
func SearchPaths(bases ...string) []string {
	paths := lo.FlatMap(bases, func(base string, _ int) []string {
		return []string{
			filepath.Join(base, FileName),
			filepath.Join(base, "config", FileName),
		}
	})
	return lo.UniqBy(paths, func(p string) string {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	})
}

// DefaultBases returns the executable's directory followed by the working
// directory.
func DefaultBases() []string {
	bases := make([]string, 0, 2)
	if exe, err := os.Executable(); err == nil {
		bases = append(bases, filepath.Dir(exe))
	}
	return append(bases, ".")
}

// Discover returns the first existing configuration file under bases, or
// nil when none exists.
func Discover(bases ...string) []string {
	found, ok := lo.Find(SearchPaths(bases...), func(p string) bool {
		info, err := os.Stat(p)
		return err == nil && !info.IsDir()
	})
	if !ok {
		return nil
	}
	return []string{found}
}
