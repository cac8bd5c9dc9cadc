// Package migrations holds the per-dialect SQL migration files.
package migrations

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var files embed.FS

// For returns the migrations for a dialect subdirectory ("sqlite",
// "postgres", "mysql"). When overridePath is set, files are read from
// overridePath/<subdir> on disk instead of the embedded copy.
func For(subdir, overridePath string) (fs.FS, error) {
	if overridePath != "" {
		return os.DirFS(filepath.Join(overridePath, subdir)), nil
	}
	return fs.Sub(files, subdir)
}
