package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// discoveredFile is one candidate file surfaced by walking the project
// tree under the configured include/exclude glob patterns, before language
// routing or parsing.
type discoveredFile struct {
	Path     string // absolute
	RelPath  string // relative to root, slash-separated
	Size     int64
	Checksum string
}

// walkOptions configures walkProject.
type walkOptions struct {
	Root             string
	IncludeGlobs     []string
	ExcludeGlobs     []string
	MaxFileSizeBytes int64
}

// walkProject discovers every regular file under opts.Root passing the
// include/exclude glob filters (gitignore-style negation via a leading "!"),
// a root .gitignore (if present), the size cap, and a binary-content sniff.
// Glob matching uses github.com/bmatcuk/doublestar/v4 for "**" support.
func walkProject(opts walkOptions) ([]discoveredFile, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}

	gitignore := loadGitignore(filepath.Join(root, ".gitignore"))

	var files []discoveredFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() != "." && strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		relSlash := filepath.ToSlash(relPath)

		if !passesGlobs(relSlash, opts.IncludeGlobs, opts.ExcludeGlobs) {
			return nil
		}
		if matchesGitignore(relSlash, gitignore) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxFileSizeBytes > 0 && info.Size() > opts.MaxFileSizeBytes {
			return nil
		}
		if looksBinary(path) {
			return nil
		}

		checksum, err := checksumFile(path)
		if err != nil {
			return nil
		}

		files = append(files, discoveredFile{Path: path, RelPath: relSlash, Size: info.Size(), Checksum: checksum})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// passesGlobs applies include then exclude, both gitignore-style lists
// where patterns are matched in order and a "!"-prefixed pattern reverses
// the match state of a prior pattern within the same list (this:
// "gitignore-style, with negation"). An empty include list means "include
// everything".
func passesGlobs(relPath string, include, exclude []string) bool {
	included := true
	if len(include) > 0 {
		included = matchGlobList(relPath, include)
	}
	if !included {
		return false
	}
	return !matchGlobList(relPath, exclude)
}

func matchGlobList(relPath string, patterns []string) bool {
	matched := false
	for _, raw := range patterns {
		neg := strings.HasPrefix(raw, "!")
		pattern := filepath.ToSlash(strings.TrimPrefix(raw, "!"))

		if ok, _ := doublestar.Match(pattern, relPath); ok {
			matched = !neg
			continue
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(relPath)); ok {
			matched = !neg
		}
	}
	return matched
}

// loadGitignore reads a .gitignore's non-empty, non-comment lines.
func loadGitignore(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var patterns []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

func matchesGitignore(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	matched := false
	for _, raw := range patterns {
		neg := strings.HasPrefix(raw, "!")
		pattern := strings.TrimSuffix(strings.TrimPrefix(raw, "!"), "/")
		if !strings.Contains(pattern, "/") {
			for _, part := range strings.Split(relPath, "/") {
				if ok, _ := filepath.Match(pattern, part); ok {
					matched = !neg
				}
			}
		}
		if ok, _ := filepath.Match(pattern, relPath); ok {
			matched = !neg
		}
	}
	return matched
}

// looksBinary sniffs the first 512 bytes for a NUL byte.
func looksBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return true
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
