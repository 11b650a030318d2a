package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"grabvid/internal/app"
	"grabvid/internal/tools"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("GRABVID_HOME", "")
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitCLIError},
		{"explicit", &ExitError{Code: 7, Err: errors.New("x")}, 7},
		{"dependency", &app.DependencyError{Tool: "downloader", Err: tools.ErrNoArtifact}, ExitMissingDep},
		{"wrapped dependency", fmt.Errorf("bootstrap: %w", &app.DependencyError{Tool: "transcoder", Err: errors.New("x")}), ExitMissingDep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestReportErrorPrintsHints(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, &app.DependencyError{
		Tool:  "downloader",
		Hints: []string{"Install yt-dlp via Homebrew: brew install yt-dlp"},
		Err:   tools.ErrNoArtifact,
	})
	out := buf.String()
	if !strings.Contains(out, "required tool downloader is unavailable") {
		t.Fatalf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "brew install yt-dlp") {
		t.Fatalf("missing hint:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(stdout) != "grabvid "+Version {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRootRejectsArguments(t *testing.T) {
	if _, _, err := runCLI(t, "https://youtu.be/dQw4w9WgXcQ"); err == nil {
		t.Fatal("expected an error for positional arguments")
	}
}

func TestToolsListJSON(t *testing.T) {
	home := t.TempDir()
	stdout, _, err := runCLI(t, "--home", home, "tools", "list", "--json")
	if err != nil {
		t.Fatalf("tools list: %v", err)
	}

	var statuses []tools.Status
	if err := json.Unmarshal([]byte(stdout), &statuses); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if len(statuses) != len(tools.Catalog("")) {
		t.Fatalf("expected one status per catalog tool, got %d", len(statuses))
	}
	toolsDir := filepath.Join(home, "tools")
	for _, st := range statuses {
		if !strings.HasPrefix(st.Target, toolsDir) {
			t.Fatalf("target %s not below %s", st.Target, toolsDir)
		}
	}
}

func TestToolsInstallUnknownTool(t *testing.T) {
	home := t.TempDir()
	_, _, err := runCLI(t, "--home", home, "tools", "install", "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if ExitCode(err) != ExitCLIError {
		t.Fatalf("exit code = %d", ExitCode(err))
	}
	if !strings.Contains(err.Error(), "unknown tool: nope") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	home := t.TempDir()
	cfgFile := filepath.Join(home, "custom.yaml")
	writeFile(t, cfgFile, "download:\n  quality: ultra\n")

	_, _, err := runCLI(t, "--home", home, "--config", cfgFile, "tools", "list")
	if err == nil || !strings.Contains(err.Error(), "download.quality") {
		t.Fatalf("expected quality error, got %v", err)
	}
	if ExitCode(err) != ExitCLIError {
		t.Fatalf("exit code = %d", ExitCode(err))
	}
}

func TestSelectTools(t *testing.T) {
	specs := []tools.ToolSpec{
		{Name: tools.ToolDownloader, Artifact: &tools.Artifact{URL: "https://example.com/yt-dlp"}},
		{Name: tools.ToolPlayer},
	}

	all, err := selectTools(specs, nil)
	if err != nil {
		t.Fatalf("selectTools: %v", err)
	}
	if len(all) != 1 || all[0].Name != tools.ToolDownloader {
		t.Fatalf("all should skip tools without downloads: %+v", all)
	}

	one, err := selectTools(specs, []string{" PLAYER "})
	if err != nil || len(one) != 1 || one[0].Name != tools.ToolPlayer {
		t.Fatalf("named selection = %+v, %v", one, err)
	}

	if _, err := selectTools([]tools.ToolSpec{{Name: tools.ToolPlayer}}, []string{"all"}); !errors.Is(err, tools.ErrNoArtifact) {
		t.Fatalf("expected ErrNoArtifact, got %v", err)
	}
}

func TestCatalogAppliesConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GRABVID_HOME", "")
	homeDir, configPath = home, ""
	t.Cleanup(func() { homeDir = "" })

	writeFile(t, filepath.Join(home, "config.yaml"), strings.Join([]string{
		"tools_dir: bin",
		"required: [downloader]",
		"tools:",
		"  downloader:",
		"    url: https://mirror.example.com/yt-dlp",
		"",
	}, "\n"))

	pp, cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if pp.ToolsDir != filepath.Join(home, "bin") {
		t.Fatalf("tools dir = %s", pp.ToolsDir)
	}

	specs := catalog(pp, cfg)
	dl, _ := tools.Lookup(specs, tools.ToolDownloader)
	if !dl.Required || dl.Artifact == nil || dl.Artifact.URL != "https://mirror.example.com/yt-dlp" {
		t.Fatalf("downloader spec = %+v", dl)
	}
	if tc, _ := tools.Lookup(specs, tools.ToolTranscoder); tc.Required {
		t.Fatal("transcoder should no longer be required")
	}
}
