package install

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArchiveSuffix is the only archive format the installer accepts.
const ArchiveSuffix = ".zip"

// ExtractArchive installs a plugin archive into pluginDir. The archive must
// contain exactly one top-level folder; its name is normalized (hyphens to
// underscores) and any pre-existing folder of that name is replaced. Returns
// the extracted folder path.
func ExtractArchive(archivePath, pluginDir string) (string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer func() { _ = reader.Close() }()

	top, err := topLevelFolder(archivePath, reader.File)
	if err != nil {
		return "", err
	}
	folder := strings.ReplaceAll(top, "-", "_")

	target := filepath.Join(pluginDir, folder)
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("removing existing folder %s: %w", target, err)
	}
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		return "", fmt.Errorf("creating plugin directory: %w", err)
	}

	for _, file := range reader.File {
		if err := extractEntry(file, pluginDir, top, folder); err != nil {
			return "", err
		}
	}
	return target, nil
}

// topLevelFolder returns the single folder all archive entries live under.
func topLevelFolder(archivePath string, files []*zip.File) (string, error) {
	tops := make(map[string]bool)
	for _, f := range files {
		name := filepath.ToSlash(f.Name)
		segment, _, _ := strings.Cut(name, "/")
		if segment == "" || segment == name && !f.FileInfo().IsDir() {
			// A bare file at the archive root has no containing folder.
			tops[""] = true
			continue
		}
		tops[segment] = true
	}

	if len(tops) != 1 || tops[""] {
		folders := make([]string, 0, len(tops))
		for t := range tops {
			folders = append(folders, t)
		}
		sort.Strings(folders)
		return "", &ArchiveShapeError{Archive: archivePath, Folders: folders}
	}
	for t := range tops {
		return t, nil
	}
	return "", &ArchiveShapeError{Archive: archivePath}
}

// extractEntry writes one archive entry under pluginDir, remapping the top
// folder to its normalized name and refusing paths that escape pluginDir.
func extractEntry(file *zip.File, pluginDir, top, folder string) error {
	name := filepath.ToSlash(file.Name)
	if top != folder && (name == top || strings.HasPrefix(name, top+"/")) {
		name = folder + strings.TrimPrefix(name, top)
	}

	dest := filepath.Join(pluginDir, filepath.FromSlash(name))
	base := filepath.Clean(pluginDir) + string(filepath.Separator)
	if !strings.HasPrefix(filepath.Clean(dest)+string(filepath.Separator), base) {
		return &PathTraversalError{Entry: file.Name}
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", file.Name, err)
	}

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %s: %w", file.Name, err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode().Perm()|0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("extracting %s: %w", file.Name, err)
	}
	return out.Close()
}
