package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
)

// run executes the CLI in-process and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"mediaio", "--quiet"}, args...))
	return out.String(), err
}

func TestInfoCommand(t *testing.T) {
	out, err := run(t, "info", "testpattern://64x48@10?seconds=2")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"testpattern", "rgba 64x48", "sowt 48000 Hz", "2.000s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInfoCommandUnknownPath(t *testing.T) {
	if _, err := run(t, "info", "clip.unknown"); err == nil {
		t.Error("expected error for a path no plugin reads")
	}
	if _, err := run(t, "info"); err == nil {
		t.Error("expected error without arguments")
	}
}

func TestPlayCommand(t *testing.T) {
	out, err := run(t, "play", "--max-frames", "5", "testpattern://32x24@25?seconds=1")
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if !strings.Contains(out, " 5 ") {
		t.Errorf("expected 5 video frames in output:\n%s", out)
	}

	out, err = run(t, "play", "--seek", "0.8", "testpattern://32x24@25?seconds=1")
	if err != nil {
		t.Fatalf("play with seek failed: %v", err)
	}
	if !strings.Contains(out, "0.800s") || !strings.Contains(out, "0.960s") {
		t.Errorf("expected video from 0.800s to 0.960s:\n%s", out)
	}
}

func TestPlayCommandDump(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "play", "--dump", dir, "--max-frames", "3", "testpattern://16x16@10?seconds=1")
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	for _, name := range []string{"info.yaml", "frames/frame-0000.png", "frames/frame-0002.png"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "frames", "frame-0003.png")); err == nil {
		t.Error("only 3 frames should be dumped")
	}
}

func TestPlayCommandBadSeek(t *testing.T) {
	if _, err := run(t, "play", "--seek", "soon", "testpattern://32x24@25"); err == nil {
		t.Error("expected error for an unparsable seek position")
	}
}

func TestThumbCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "thumb", "--size", "40", "--out", dir,
		"testpattern://80x60@10?seconds=1", "testpattern://60x80@10?seconds=1&tone=0")
	if err != nil {
		t.Fatalf("thumb failed: %v", err)
	}

	tests := []struct {
		name string
		w, h int
	}{
		{"80x60@10.png", 40, 30},
		{"60x80@10.png", 30, 40},
	}
	for _, tt := range tests {
		f, err := os.Open(filepath.Join(dir, tt.name))
		if err != nil {
			t.Errorf("missing %s: %v", tt.name, err)
			continue
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Errorf("decode %s: %v", tt.name, err)
			continue
		}
		if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
			t.Errorf("%s is %dx%d, want %dx%d", tt.name, b.Dx(), b.Dy(), tt.w, tt.h)
		}
	}
}

func TestThumbCommandFailure(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, "thumb", "--out", dir, filepath.Join(dir, "missing.mp4")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediaio.yaml")
	if err := os.WriteFile(path, []byte("testpattern:\n  width: 48\n  height: 16\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "--config", path, "info", "testpattern://")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if !strings.Contains(out, "48x16") {
		t.Errorf("config size not applied:\n%s", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("log_level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", bad, "plugins"); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestPluginsAndVersion(t *testing.T) {
	out, err := run(t, "plugins")
	if err != nil {
		t.Fatalf("plugins failed: %v", err)
	}
	for _, name := range []string{"mp4", "image", "testpattern"} {
		if !strings.Contains(out, name) {
			t.Errorf("plugin %s not listed:\n%s", name, out)
		}
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("version output %q missing %q", out, version)
	}
}

func TestThumbName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/videos/clip.mp4", "clip"},
		{"testpattern://64x48@30?seconds=2", "64x48@30"},
		{"photo with spaces.png", "photo_with_spaces"},
		{"testpattern://", "thumbnail"},
	}
	for _, tt := range tests {
		if got := thumbName(tt.path); got != tt.want {
			t.Errorf("thumbName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
