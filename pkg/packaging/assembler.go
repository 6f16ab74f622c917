// Package packaging assembles the deployment archive
package packaging

import (
	"archive/zip"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/scaffold"
	"github.com/stagehand/stagehand/pkg/types"
	"github.com/stagehand/stagehand/pkg/utils"
)

// ErrDeploymentNotSucceeded is returned when assembly is requested for
// a run that did not succeed; packaging a failed run is a usage error.
var ErrDeploymentNotSucceeded = errors.New("package assembly requires a succeeded deployment")

// Assembler writes the build outputs, assets and generated deployment
// scripts into a single compressed archive. The archive is written
// single-threaded, strictly after all phases complete.
type Assembler struct {
	cfg    *types.DeploymentConfig
	logger logger.Logger
}

// NewAssembler creates a package assembler
func NewAssembler(cfg *types.DeploymentConfig, log logger.Logger) *Assembler {
	return &Assembler{
		cfg:    cfg,
		logger: log,
	}
}

// ArchiveName returns the archive file name for the given creation
// time. Timestamp resolution is whole seconds; two runs within the same
// second collide, which is accepted.
func (a *Assembler) ArchiveName(created time.Time) string {
	return fmt.Sprintf("%s-%s-%s.zip",
		a.cfg.ProjectName, a.cfg.Version, created.Format("20060102-150405"))
}

// Assemble walks the dist and asset trees, injects the generated
// deployment scripts and writes everything into one archive. It returns
// the archive path.
func (a *Assembler) Assemble(summary *types.DeploymentSummary) (string, error) {
	if summary == nil || !summary.Succeeded() {
		return "", ErrDeploymentNotSucceeded
	}

	entries, err := a.collectEntries()
	if err != nil {
		return "", err
	}

	if err := utils.EnsureDirectory(a.cfg.Paths.TempRoot); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := filepath.Join(a.cfg.Paths.TempRoot, a.ArchiveName(time.Now()))

	if err := a.writeArchive(archivePath, entries); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to write archive: %w", err)
	}

	size, _ := utils.GetFileSize(archivePath)
	a.logger.Success("Package assembled",
		logger.WithField("archive", archivePath),
		logger.WithField("entries", len(entries)),
		logger.WithField("size", utils.FormatBytes(size)))

	return archivePath, nil
}

// collectEntries gathers every regular file under the dist and asset
// trees plus the fixed set of generated script entries
func (a *Assembler) collectEntries() ([]types.PackageManifestEntry, error) {
	var entries []types.PackageManifestEntry

	for _, root := range []string{a.cfg.Paths.DistRoot, a.cfg.Paths.AssetsRoot} {
		if !utils.DirectoryExists(root) {
			continue
		}
		// Entries are addressed relative to the project root even when
		// the configured roots are absolute
		prefix := filepath.Base(root)
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			entries = append(entries, types.PackageManifestEntry{
				ArchivePath: filepath.ToSlash(filepath.Join(prefix, rel)),
				SourcePath:  path,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	entries = append(entries, scaffold.DeploymentScripts(a.cfg)...)
	return entries, nil
}

func (a *Assembler) writeArchive(archivePath string, entries []types.PackageManifestEntry) error {
	file, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	defer zw.Close()

	method := zip.Store
	if a.cfg.Features.Compression {
		method = zip.Deflate
		level := a.cfg.CompressionLevel
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	for _, entry := range entries {
		writer, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.ArchivePath,
			Method:   method,
			Modified: time.Now(),
		})
		if err != nil {
			return err
		}

		if entry.SourcePath != "" {
			if err := copyFileInto(writer, entry.SourcePath); err != nil {
				return err
			}
			continue
		}

		if _, err := writer.Write(entry.Content); err != nil {
			return err
		}
	}

	return zw.Close()
}

func copyFileInto(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(dst, src)
	return err
}
