package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrOutputDirNotEmpty is returned when the output directory already holds files.
var ErrOutputDirNotEmpty = errors.New("output directory is not empty")

var nameReplacer = strings.NewReplacer("/", "_", `\`, "_", string(os.PathSeparator), "_")

// OutputPath returns <dir>/<channel>.<pair>.<chanID>.csv.
func OutputPath(dir, channel, pair string, chanID int64) string {
	name := nameReplacer.Replace(channel) + "." +
		nameReplacer.Replace(pair) + "." +
		strconv.FormatInt(chanID, 10) + ".csv"
	return filepath.Join(dir, name)
}

// PrepareOutputDir creates dir if it does not exist.
// An existing directory must be empty.
func PrepareOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s has %d entries", ErrOutputDirNotEmpty, dir, len(entries))
	}
	return nil
}
