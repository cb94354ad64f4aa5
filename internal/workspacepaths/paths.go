// Package workspacepaths resolves paths reported by the server against the
// workspace it runs in.
package workspacepaths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideWorkspace = errors.New("path must not escape the workspace")

type DirChecker interface {
	Stat(name string) (os.FileInfo, error)
}

type osDirChecker struct{}

func (osDirChecker) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func OSDirChecker() DirChecker {
	return osDirChecker{}
}

// NormalizeRelative cleans a workspace-relative path. "" and "." both mean
// the workspace root and normalize to "".
func NormalizeRelative(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	cleaned := filepath.Clean(trimmed)
	if cleaned == "." {
		return "", nil
	}
	if filepath.IsAbs(cleaned) {
		return "", errors.New("path must be relative to the workspace")
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrOutsideWorkspace
	}
	return cleaned, nil
}

// ResolveFile returns path as an absolute path. Relative paths are joined to
// root and must stay inside it; absolute paths are only cleaned.
func ResolveFile(root, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return filepath.Abs(path)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rel, err := NormalizeRelative(path)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return filepath.Clean(rootAbs), nil
	}
	return filepath.Join(rootAbs, rel), nil
}

func ValidateDirectory(path string, checker DirChecker) error {
	if checker == nil {
		checker = OSDirChecker()
	}
	info, err := checker.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}
	return nil
}
