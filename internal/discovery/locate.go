package discovery

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Compy/mpf-mc/internal/assets"
)

// LocateFile resolves an asset file reference against a list of
// search directories, first match wins. Absolute paths are verified
// as-is. Subdirectories of each search directory are checked too, so
// config entries can reference files sorted into subfolders.
func LocateFile(file string, searchDirs ...string) (string, error) {
	if filepath.IsAbs(file) {
		if fileExists(file) {
			return file, nil
		}
		return "", fmt.Errorf("%w: file %s", assets.ErrNotFound, file)
	}

	for _, dir := range searchDirs {
		direct := filepath.Join(dir, file)
		if fileExists(direct) {
			return direct, nil
		}

		var found string
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && d.Name() == file {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if found != "" {
			return found, nil
		}
	}
	return "", fmt.Errorf("%w: file %q not found in %v", assets.ErrNotFound, file, searchDirs)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
