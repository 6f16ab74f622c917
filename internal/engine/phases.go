package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stagehand/stagehand/pkg/logger"
	"github.com/stagehand/stagehand/pkg/optimizer"
	"github.com/stagehand/stagehand/pkg/phases"
	"github.com/stagehand/stagehand/pkg/scaffold"
	"github.com/stagehand/stagehand/pkg/utils"
)

// defaultPhases returns the fixed phase set. The phases are independent
// and each writes to a disjoint subtree of the dist root, so they run
// fully concurrently without locking.
func (o *Orchestrator) defaultPhases() []phases.Phase {
	return []phases.Phase{
		{Name: "web-assets", Run: o.buildWebAssets},
		{Name: "mobile-assets", Run: o.buildMobileAssets},
		{Name: "wearable-assets", Run: o.buildWearableAssets},
		{Name: "asset-optimization", Run: o.sweepAssets},
	}
}

func (o *Orchestrator) buildWebAssets(ctx context.Context) error {
	dir := filepath.Join(o.cfg.Paths.DistRoot, "web")

	files := map[string][]byte{
		"index.html":      scaffold.IndexHTML(o.cfg),
		"manifest.json":   scaffold.WebManifest(o.cfg),
		"styles/main.css": scaffold.StyleSheet(o.cfg),
		"scripts/app.js":  scaffold.AppScript(o.cfg),
	}
	if o.cfg.Features.Caching {
		files["cache.json"] = scaffold.CacheManifest(o.cfg)
	}

	if err := writeGenerated(dir, files); err != nil {
		return err
	}

	return copyBuildTree(o.cfg.Paths.BuildRoot, dir, "web")
}

func (o *Orchestrator) buildMobileAssets(ctx context.Context) error {
	dir := filepath.Join(o.cfg.Paths.DistRoot, "mobile")

	files := map[string][]byte{
		"manifest.json": scaffold.MobileManifest(o.cfg),
	}

	if err := writeGenerated(dir, files); err != nil {
		return err
	}

	return copyBuildTree(o.cfg.Paths.BuildRoot, dir, "mobile")
}

func (o *Orchestrator) buildWearableAssets(ctx context.Context) error {
	dir := filepath.Join(o.cfg.Paths.DistRoot, "wearable")

	files := map[string][]byte{
		"watchface.xml": scaffold.WatchFaceXML(o.cfg),
		"manifest.json": scaffold.WearableManifest(o.cfg),
	}

	if err := writeGenerated(dir, files); err != nil {
		return err
	}

	return copyBuildTree(o.cfg.Paths.BuildRoot, dir, "wearable")
}

// sweepAssets walks the asset tree and optimizes every file into
// dist/assets. Degraded (fallback-copied) assets are fine; an asset
// that produced no output at all fails the phase.
func (o *Orchestrator) sweepAssets(ctx context.Context) error {
	outRoot := filepath.Join(o.cfg.Paths.DistRoot, "assets")
	if err := utils.EnsureDirectory(outRoot); err != nil {
		return err
	}

	assetsRoot := o.cfg.Paths.AssetsRoot
	if !utils.DirectoryExists(assetsRoot) {
		o.logger.Warn(fmt.Sprintf("Asset root %s does not exist, nothing to optimize", assetsRoot))
		return nil
	}

	var processed, failed int

	err := filepath.Walk(assetsRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		// Cooperative cancellation between assets
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(assetsRoot, path)
		if err != nil {
			return err
		}

		outcome := o.optimizer.Optimize(ctx, path, filepath.Join(outRoot, rel), optimizer.KindFor(path))
		processed++
		if !outcome.Succeeded {
			failed++
			return nil
		}

		o.logger.Debug("Asset processed",
			logger.WithField("asset", outcome.AssetPath),
			logger.WithField("method", outcome.Method))
		return nil
	})
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d assets failed optimization", failed, processed)
	}

	o.logger.Info(fmt.Sprintf("Optimized %d assets", processed))
	return nil
}

// writeGenerated writes the generated files for one target subtree
func writeGenerated(dir string, files map[string][]byte) error {
	for rel, content := range files {
		if err := utils.WriteFile(filepath.Join(dir, rel), content); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}
	return nil
}

// copyBuildTree copies the prebuilt target subtree into dist, if one
// exists under the build root
func copyBuildTree(buildRoot, dst, target string) error {
	src := filepath.Join(buildRoot, target)
	if !utils.DirectoryExists(src) {
		return nil
	}
	return utils.CopyDirectory(src, dst)
}
