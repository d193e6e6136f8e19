package install

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/modkit-io/modkit/internal/domain/plugin"
)

// Publish packages a plugin folder into an installable archive named
// <label>-<version>.zip under outDir. The archive holds a single top-level
// folder, the shape the archive installer requires. Returns the archive path.
func Publish(sourceDir, outDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(sourceDir, plugin.DescriptorName))
	if err != nil {
		return "", fmt.Errorf("reading descriptor: %w", err)
	}
	desc, err := plugin.ParseDescriptor(data)
	if err != nil {
		return "", err
	}
	if desc.Name == "" {
		return "", plugin.ErrEmptyPluginName
	}
	if desc.Version == "" {
		return "", fmt.Errorf("plugin %q has no version to publish", desc.Name)
	}

	meta := desc.Metadata(sourceDir, "")
	archivePath := filepath.Join(outDir, fmt.Sprintf("%s-%s%s", meta.Label(), meta.Version, ArchiveSuffix))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	writer := zip.NewWriter(out)

	err = addTree(writer, sourceDir, meta.Label())
	if cerr := writer.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(archivePath)
		return "", fmt.Errorf("packaging %s: %w", desc.Name, err)
	}
	return archivePath, nil
}

// addTree writes every regular file under sourceDir into the archive beneath
// a single top-level folder, excluding version-control metadata.
func addTree(writer *zip.Writer, sourceDir, folder string) error {
	return filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		dst, err := writer.Create(folder + "/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(dst, src)
		if cerr := src.Close(); err == nil {
			err = cerr
		}
		return err
	})
}
