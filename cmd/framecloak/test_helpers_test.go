package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"framecloak/internal/config"
	"framecloak/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	container  *testsupport.ZipContainer
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	configPath := filepath.Join(base, "framecloak.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		container:  &testsupport.ZipContainer{},
		baseDir:    base,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *cliTestEnv) runWithInput(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var configFlag string
	var jsonFlag bool
	ctx := newCommandContext(&configFlag, &jsonFlag)
	ctx.container = e.container
	cmd := buildRootCommand(ctx)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q
key_dir = %q
state_dir = %q

[server]
bind = %q
max_upload_mb = %d

[media]
ffmpeg_binary = %q
ffprobe_binary = %q

[logging]
format = "json"
level = "error"
`,
		cfg.Paths.WorkDir,
		cfg.Paths.LogDir,
		cfg.Paths.KeyDir,
		cfg.Paths.StateDir,
		cfg.Server.Bind,
		cfg.Server.MaxUploadMB,
		cfg.Media.FFmpegBinary,
		cfg.Media.FFprobeBinary,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
