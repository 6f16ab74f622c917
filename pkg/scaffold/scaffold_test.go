package scaffold

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stagehand/stagehand/pkg/types"
)

func testCfg() *types.DeploymentConfig {
	return types.DefaultConfig("wavecrest", "3.1.0")
}

func TestIndexHTML(t *testing.T) {
	html := string(IndexHTML(testCfg()))

	if !strings.Contains(html, "<title>wavecrest</title>") {
		t.Error("project name missing from title")
	}
	if !strings.Contains(html, `data-version="3.1.0"`) {
		t.Error("version missing from app mount")
	}
}

func TestWatchFaceXMLParses(t *testing.T) {
	var face struct {
		XMLName  xml.Name `xml:"watchface"`
		Metadata struct {
			Name    string `xml:"name"`
			Version string `xml:"version"`
		} `xml:"metadata"`
		Layers struct {
			Layer []struct {
				ID   string `xml:"id,attr"`
				Type string `xml:"type,attr"`
			} `xml:"layer"`
		} `xml:"layers"`
	}

	if err := xml.Unmarshal(WatchFaceXML(testCfg()), &face); err != nil {
		t.Fatalf("watch face is not valid XML: %v", err)
	}
	if face.Metadata.Name != "wavecrest" || face.Metadata.Version != "3.1.0" {
		t.Errorf("metadata = %+v", face.Metadata)
	}
	if len(face.Layers.Layer) != 4 {
		t.Errorf("layer count = %d, want 4", len(face.Layers.Layer))
	}
}

func TestManifestsAreValidJSON(t *testing.T) {
	cfg := testCfg()

	tests := []struct {
		name string
		data []byte
	}{
		{"web", WebManifest(cfg)},
		{"mobile", MobileManifest(cfg)},
		{"wearable", WearableManifest(cfg)},
		{"cache", CacheManifest(cfg)},
		{"dependency", DependencyManifest(cfg)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var parsed map[string]interface{}
			if err := json.Unmarshal(tt.data, &parsed); err != nil {
				t.Fatalf("%s manifest is not valid JSON: %v", tt.name, err)
			}
			if parsed["version"] != "3.1.0" {
				t.Errorf("version = %v, want 3.1.0", parsed["version"])
			}
		})
	}
}

func TestDeploymentScripts(t *testing.T) {
	entries := DeploymentScripts(testCfg())

	want := map[string]bool{
		"install.sh":   false,
		"install.bat":  false,
		"package.json": false,
		"Dockerfile":   false,
	}

	for _, entry := range entries {
		if entry.SourcePath != "" {
			t.Errorf("%s: generated entries carry content, not a source path", entry.ArchivePath)
		}
		if len(entry.Content) == 0 {
			t.Errorf("%s: empty content", entry.ArchivePath)
		}
		if _, ok := want[entry.ArchivePath]; !ok {
			t.Errorf("unexpected entry %s", entry.ArchivePath)
			continue
		}
		want[entry.ArchivePath] = true
	}

	for name, seen := range want {
		if !seen {
			t.Errorf("missing entry %s", name)
		}
	}
}

func TestInstallScriptShape(t *testing.T) {
	script := string(InstallScript(testCfg()))

	if !strings.HasPrefix(script, "#!/bin/sh") {
		t.Error("installer should start with a shebang")
	}
	if !strings.Contains(script, "wavecrest") {
		t.Error("installer should name the project")
	}
}
