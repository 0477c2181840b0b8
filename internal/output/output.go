// Package output decides where result files go and writes them safely.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultSuffix is appended to the input's stem for cleaned output files.
const DefaultSuffix = "___CLEANED"

// stampLayout is yyyyMMddHHmmss.
const stampLayout = "20060102150405"

// Placer builds output paths next to an input file or under Dir.
type Placer struct {
	Dir    string           // Output directory; empty means the input's directory.
	Suffix string           // Appended to the stem by CleanedPath; empty means DefaultSuffix.
	Now    func() time.Time // Clock for UniquePath; nil means time.Now.
}

// CleanedPath returns <dir>/<stem><suffix>.<ext> for input.
func (p Placer) CleanedPath(input, ext string) string {
	suffix := p.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return filepath.Join(p.dir(input), stem(input)+suffix+"."+ext)
}

// UniquePath returns <dir>/<stem>.<ext> when no such file exists yet, and a
// timestamped <stem>_<yyyyMMddHHmmss>.<ext> otherwise. A numeric suffix is
// added if the timestamped name is taken too.
func (p Placer) UniquePath(input, ext string) (string, error) {
	dir, base := p.dir(input), stem(input)

	candidate := filepath.Join(dir, base+"."+ext)
	free, err := notExist(candidate)
	if err != nil || free {
		return candidate, err
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	stamped := base + "_" + now().Format(stampLayout)
	candidate = filepath.Join(dir, stamped+"."+ext)
	for n := 2; ; n++ {
		free, err := notExist(candidate)
		if err != nil || free {
			return candidate, err
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d.%s", stamped, n, ext))
	}
}

func (p Placer) dir(input string) string {
	if p.Dir != "" {
		return p.Dir
	}
	return filepath.Dir(input)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func notExist(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("output: checking %s: %w", path, err)
	}
	return false, nil
}

// WriteFile creates path's directory and writes the file through fn. Content
// goes to a temporary file in the same directory that is renamed over path
// only after fn succeeds, so a failed write never leaves a partial file.
func WriteFile(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output: creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".vcardclean-*")
	if err != nil {
		return fmt.Errorf("output: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	bw := bufio.NewWriter(tmp)
	if err := fn(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("output: writing %s: %w", path, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("output: syncing %s: %w", path, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("output: closing %s: %w", path, err)
	}
	_ = os.Chmod(tmpPath, 0o644)

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("output: replacing %s: %w", path, err)
	}
	return nil
}
