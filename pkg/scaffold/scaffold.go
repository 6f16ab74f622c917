// Package scaffold generates the static deployment content shipped with
// every package: manifests, templates and installer scripts. Every
// producer is a pure function of the configuration and returns bytes.
package scaffold

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/stagehand/stagehand/pkg/types"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.ProjectName}}</title>
  <link rel="stylesheet" href="styles/main.css">
  <link rel="manifest" href="manifest.json">
</head>
<body>
  <div id="app" data-version="{{.Version}}"></div>
  <script src="scripts/app.js"></script>
</body>
</html>
`))

var watchFaceTemplate = template.Must(template.New("watchface").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<watchface width="360" height="360">
  <metadata>
    <name>{{.ProjectName}}</name>
    <version>{{.Version}}</version>
  </metadata>
  <layers>
    <layer id="background" type="image" src="images/bg.png"/>
    <layer id="hour-hand" type="hand" role="hour" src="images/hour.png"/>
    <layer id="minute-hand" type="hand" role="minute" src="images/minute.png"/>
    <layer id="second-hand" type="hand" role="second" src="images/second.png"/>
  </layers>
</watchface>
`))

// IndexHTML renders the web entry page
func IndexHTML(cfg *types.DeploymentConfig) []byte {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, cfg); err != nil {
		// Templates are static and the data is a plain struct; an
		// execution error here is a programming bug.
		panic(err)
	}
	return buf.Bytes()
}

// StyleSheet renders the base stylesheet template
func StyleSheet(cfg *types.DeploymentConfig) []byte {
	return []byte(fmt.Sprintf(`/* %s v%s */
:root {
  --primary: #1a1a2e;
  --accent: #0f3460;
  --highlight: #e94560;
}

body {
  margin: 0;
  font-family: system-ui, sans-serif;
  background: var(--primary);
  color: #fff;
}

#app {
  min-height: 100vh;
  display: flex;
  align-items: center;
  justify-content: center;
}
`, cfg.ProjectName, cfg.Version))
}

// AppScript renders the web bootstrap script
func AppScript(cfg *types.DeploymentConfig) []byte {
	return []byte(fmt.Sprintf(`// %s v%s
(function () {
  "use strict";
  var app = document.getElementById("app");
  app.textContent = "%s " + app.dataset.version;
})();
`, cfg.ProjectName, cfg.Version, cfg.ProjectName))
}

// WatchFaceXML renders the wearable watch-face description
func WatchFaceXML(cfg *types.DeploymentConfig) []byte {
	var buf bytes.Buffer
	if err := watchFaceTemplate.Execute(&buf, cfg); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WebManifest renders the web application manifest
func WebManifest(cfg *types.DeploymentConfig) []byte {
	return marshalManifest(map[string]interface{}{
		"name":             cfg.ProjectName,
		"short_name":       cfg.ProjectName,
		"version":          cfg.Version,
		"start_url":        "/index.html",
		"display":          "standalone",
		"background_color": "#1a1a2e",
		"theme_color":      "#0f3460",
	})
}

// MobileManifest renders the mobile application descriptor
func MobileManifest(cfg *types.DeploymentConfig) []byte {
	return marshalManifest(map[string]interface{}{
		"name":        cfg.ProjectName,
		"version":     cfg.Version,
		"orientation": "portrait",
		"fullscreen":  false,
		"permissions": []string{"internet"},
	})
}

// WearableManifest renders the wearable application descriptor
func WearableManifest(cfg *types.DeploymentConfig) []byte {
	return marshalManifest(map[string]interface{}{
		"name":      cfg.ProjectName,
		"version":   cfg.Version,
		"profile":   "wearable",
		"watchface": "watchface.xml",
		"ambient":   true,
	})
}

// CacheManifest lists the web resources eligible for offline caching
func CacheManifest(cfg *types.DeploymentConfig) []byte {
	return marshalManifest(map[string]interface{}{
		"version": cfg.Version,
		"cache": []string{
			"index.html",
			"manifest.json",
			"styles/main.css",
			"scripts/app.js",
		},
	})
}

// InstallScript renders the POSIX installer
func InstallScript(cfg *types.DeploymentConfig) []byte {
	return []byte(fmt.Sprintf(`#!/bin/sh
# Installer for %s v%s
set -e

TARGET="${1:-/opt/%s}"

echo "Installing %s v%s to $TARGET"
mkdir -p "$TARGET"
cp -r dist "$TARGET/"
cp -r assets "$TARGET/" 2>/dev/null || true

echo "Done."
`, cfg.ProjectName, cfg.Version, cfg.ProjectName, cfg.ProjectName, cfg.Version))
}

// BatchScript renders the Windows installer
func BatchScript(cfg *types.DeploymentConfig) []byte {
	return []byte(fmt.Sprintf(`@echo off
rem Installer for %s v%s
set TARGET=%%1
if "%%TARGET%%"=="" set TARGET=%%ProgramFiles%%\%s

echo Installing %s v%s to %%TARGET%%
xcopy /e /i /y dist "%%TARGET%%\dist"
xcopy /e /i /y assets "%%TARGET%%\assets"

echo Done.
`, cfg.ProjectName, cfg.Version, cfg.ProjectName, cfg.ProjectName, cfg.Version))
}

// DependencyManifest renders the package dependency descriptor
func DependencyManifest(cfg *types.DeploymentConfig) []byte {
	return marshalManifest(map[string]interface{}{
		"name":    cfg.ProjectName,
		"version": cfg.Version,
		"private": true,
		"engines": map[string]string{
			"node": ">=18",
		},
		"devDependencies": map[string]string{
			"clean-css-cli": "^5.6.0",
			"terser":        "^5.31.0",
		},
	})
}

// Containerfile renders the container descriptor for serving the web build
func Containerfile(cfg *types.DeploymentConfig) []byte {
	return []byte(fmt.Sprintf(`# %s v%s
FROM nginx:alpine

COPY dist/web /usr/share/nginx/html
COPY assets /usr/share/nginx/html/assets

EXPOSE 80
`, cfg.ProjectName, cfg.Version))
}

// DeploymentScripts returns the fixed set of generated script entries
// injected into the archive without touching disk
func DeploymentScripts(cfg *types.DeploymentConfig) []types.PackageManifestEntry {
	return []types.PackageManifestEntry{
		{ArchivePath: "install.sh", Content: InstallScript(cfg)},
		{ArchivePath: "install.bat", Content: BatchScript(cfg)},
		{ArchivePath: "package.json", Content: DependencyManifest(cfg)},
		{ArchivePath: "Dockerfile", Content: Containerfile(cfg)},
	}
}

func marshalManifest(v map[string]interface{}) []byte {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	return append(data, '\n')
}
