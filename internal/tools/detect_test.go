package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"grabvid/internal/proc"
)

func TestDetectReportsEachSource(t *testing.T) {
	root := t.TempDir()
	pathDir := t.TempDir()

	onPath := testSpec(root, "downloader", &Artifact{URL: "https://example.invalid/dl", Kind: Executable{}})
	if err := os.WriteFile(filepath.Join(pathDir, onPath.Executable), []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	installed := testSpec(root, "transcoder", &Artifact{URL: "https://example.invalid/tc", Kind: Executable{}})
	if err := os.MkdirAll(installed.InstallDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(installed.TargetPath(), []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := recordInstall(root, installed, SourceRemote, installed.TargetPath()); err != nil {
		t.Fatal(err)
	}

	missing := testSpec(root, ToolPlayer, nil)
	missing.Required = false

	statuses, err := Detect(context.Background(), &pathRunner{}, proc.NewSearchPath(pathDir), []ToolSpec{onPath, installed, missing}, root)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}

	if st := statuses[0]; !st.Available || st.Source != SourcePath || st.Version != "1.0.0" {
		t.Fatalf("unexpected path status %+v", st)
	}
	if st := statuses[1]; !st.Available || st.Source != SourceTarget || st.Checksum == "" || st.InstalledAt == "" {
		t.Fatalf("unexpected target status %+v", st)
	}
	st := statuses[2]
	if st.Available || st.Error == "" || st.Required {
		t.Fatalf("unexpected missing status %+v", st)
	}
	if len(st.Notes) == 0 {
		t.Fatal("expected manual install hints for a tool without a download")
	}
}
