package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"pathtracer"}, args...))
	return out.String(), err
}

func TestListScenes(t *testing.T) {
	out, err := runApp(t, "scenes")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, name := range []string{"default", "cornell"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected scene %q in listing, got:\n%s", name, out)
		}
	}
}

func TestListScenes_Describe(t *testing.T) {
	out, err := runApp(t, "scenes", "cornell")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "Primitives") || !strings.Contains(out, "emissive") {
		t.Errorf("Expected primitive table, got:\n%s", out)
	}

	if _, err := runApp(t, "scenes", "nonexistent"); err == nil {
		t.Error("Expected error for unknown scene")
	}
}

func TestRender(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "frame.png")

	tests := []struct {
		name string
		args []string
	}{
		{"workers", []string{"render", "--width", "16", "--height", "9", "--spp", "2", "--workers", "2", "--tile-size", "4", "--out", out}},
		{"synchronous", []string{"render", "--scene", "cornell", "--width", "8", "--height", "8", "--spp", "1", "--synchronous", "--max-depth", "4", "--out", out}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(out)
			if _, err := runApp(t, tt.args...); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			f, err := os.Open(out)
			if err != nil {
				t.Fatalf("Expected output file: %v", err)
			}
			defer f.Close()

			if _, err := png.Decode(f); err != nil {
				t.Errorf("Expected valid PNG: %v", err)
			}
		})
	}
}

func TestRender_SceneFile(t *testing.T) {
	dir := t.TempDir()
	sceneFile := filepath.Join(dir, "ball.scene")
	content := `name ball
camera 0.5 0.5 -1 0 0 1
skydome gradient 1 1 1 0.5 0.7 1 0 1 1
sphere ball 0.5 0.5 0.5 0.25 0.8 0.2 0.2 0 0 0 1 0 0 1 0
`
	if err := os.WriteFile(sceneFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "ball.png")
	if _, err := runApp(t, "render", "--scene-file", sceneFile, "--width", "8", "--height", "8", "--spp", "1", "--out", out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected output file: %v", err)
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown scene", []string{"render", "--scene", "nonexistent", "--spp", "1"}},
		{"missing scene file", []string{"render", "--scene-file", "does/not/exist.scene", "--spp", "1"}},
		{"zero spp", []string{"render", "--spp", "0"}},
		{"bad resolution", []string{"render", "--width", "0", "--spp", "1"}},
		{"bad tile size", []string{"render", "--tile-size", "0", "--spp", "1", "--width", "8", "--height", "8"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runApp(t, tt.args...); err == nil {
				t.Error("Expected error, got none")
			}
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)
	expected := filepath.Join("output", "cornell", "render_20240301_140509.png")
	if got := defaultOutputPath("cornell", now); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}
