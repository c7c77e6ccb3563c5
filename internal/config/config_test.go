package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// isolate runs the test in an empty directory with no user config and none of
// the recognized environment variables set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	for _, key := range []string{
		"RUNREPORT_REPORTER", "RUNREPORT_THEME", "RUNREPORT_NO_COLOR", "NO_COLOR",
		"RUNREPORT_STOP_ON_FAIL", "RUNREPORT_STRICT", "RUNREPORT_DEBUG",
		"TEAMCITY_PROCESS_FLOW_ID", "TEAMCITY_PROJECT_NAME",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestGetConfigPath_ReturnsLocalConfig_When_FileExists(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(configFileName, []byte("theme: orca\n"), 0o600); err != nil {
		t.Fatalf("failed to write local config: %v", err)
	}

	if got := getConfigPath(); got != configFileName {
		t.Fatalf("expected local config path, got %q", got)
	}
}

func TestGetConfigPath_UsesXDGPath_When_LocalMissing(t *testing.T) {
	dir := isolate(t)
	configHome := filepath.Join(dir, "xdg", appDirName)
	if err := os.MkdirAll(configHome, 0o755); err != nil {
		t.Fatalf("failed to create XDG config directory: %v", err)
	}
	configPath := filepath.Join(configHome, configFileName)
	if err := os.WriteFile(configPath, []byte("theme: mono\n"), 0o600); err != nil {
		t.Fatalf("failed to write XDG config: %v", err)
	}

	if got := getConfigPath(); got != configPath {
		t.Fatalf("expected XDG config path %q, got %q", configPath, got)
	}
}

func TestGetConfigPath_ReturnsEmpty_When_NoConfigAvailable(t *testing.T) {
	isolate(t)
	if got := getConfigPath(); got != "" {
		t.Fatalf("expected empty config path, got %q", got)
	}
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	isolate(t)
	yamlContent := "" +
		"reporter: teamcity\n" +
		"theme: orca\n" +
		"no_color: true\n" +
		"stop_on_fail: true\n" +
		"strict: true\n" +
		"debug: true\n" +
		"root_flow_id: flow-1\n"
	if err := os.WriteFile(configFileName, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, path, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if path != configFileName {
		t.Errorf("path = %q, want %q", path, configFileName)
	}
	want := AppConfig{Reporter: "teamcity", Theme: "orca", NoColor: true, StopOnFail: true, Strict: true, Debug: true, RootFlowID: "flow-1"}
	if *cfg != want {
		t.Errorf("LoadConfig() = %+v, want %+v", *cfg, want)
	}
}

func TestLoadConfig_MalformedYAMLIsAnError(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(configFileName, []byte("theme: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestResolve_Defaults(t *testing.T) {
	isolate(t)
	r := Resolve(CliFlags{}, nil)

	if r.Reporter != ReporterDefault || r.ReporterSource != SourceDefault {
		t.Errorf("reporter = %q from %s", r.Reporter, r.ReporterSource)
	}
	if r.Theme != "default" || r.ThemeSource != SourceDefault {
		t.Errorf("theme = %q from %s", r.Theme, r.ThemeSource)
	}
	if r.NoColor || r.StopOnFail || r.Strict || r.Debug || r.RootFlowID != "" {
		t.Errorf("unexpected non-default values: %+v", r)
	}
}

func TestResolve_PriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		flags      CliFlags
		env        map[string]string
		file       AppConfig
		wantTheme  string
		wantSource string
	}{
		{
			name:       "CLI beats env and file",
			flags:      CliFlags{Theme: "mono"},
			env:        map[string]string{"RUNREPORT_THEME": "orca"},
			file:       AppConfig{Theme: "default"},
			wantTheme:  "mono",
			wantSource: SourceCLI,
		},
		{
			name:       "env beats file",
			env:        map[string]string{"RUNREPORT_THEME": "orca"},
			file:       AppConfig{Theme: "mono"},
			wantTheme:  "orca",
			wantSource: SourceEnv,
		},
		{
			name:       "file beats default",
			file:       AppConfig{Theme: "mono"},
			wantTheme:  "mono",
			wantSource: SourceFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			r := Resolve(tt.flags, &tt.file)
			if r.Theme != tt.wantTheme || r.ThemeSource != tt.wantSource {
				t.Errorf("theme = %q from %s, want %q from %s", r.Theme, r.ThemeSource, tt.wantTheme, tt.wantSource)
			}
		})
	}
}

func TestResolve_NoColor(t *testing.T) {
	tests := []struct {
		name       string
		flags      CliFlags
		env        map[string]string
		want       bool
		wantSource string
	}{
		{"NO_COLOR env", CliFlags{}, map[string]string{"NO_COLOR": "1"}, true, SourceEnv},
		{"prefixed env wins over NO_COLOR", CliFlags{}, map[string]string{"RUNREPORT_NO_COLOR": "false", "NO_COLOR": "1"}, false, SourceEnv},
		{"unparseable env ignored", CliFlags{}, map[string]string{"NO_COLOR": "maybe"}, false, SourceDefault},
		{"explicit flag wins", CliFlags{NoColor: false, NoColorSet: true}, map[string]string{"NO_COLOR": "1"}, false, SourceCLI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			r := Resolve(tt.flags, nil)
			if r.NoColor != tt.want || r.NoColorSource != tt.wantSource {
				t.Errorf("no color = %v from %s, want %v from %s", r.NoColor, r.NoColorSource, tt.want, tt.wantSource)
			}
		})
	}
}

func TestResolve_AutoReporterFollowsTeamCityEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TEAMCITY_PROJECT_NAME", "proj")
	t.Setenv("TEAMCITY_PROCESS_FLOW_ID", "root-flow")

	r := Resolve(CliFlags{Reporter: ReporterAuto}, nil)
	if r.Reporter != ReporterTeamCity {
		t.Errorf("reporter = %q, want teamcity", r.Reporter)
	}
	if r.RootFlowID != "root-flow" || r.RootFlowIDSource != SourceEnv {
		t.Errorf("root flow = %q from %s", r.RootFlowID, r.RootFlowIDSource)
	}

	r = Resolve(CliFlags{Reporter: ReporterDefault}, nil)
	if r.Reporter != ReporterDefault {
		t.Errorf("explicit default reporter overridden: %q", r.Reporter)
	}
}

func TestResolveConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		flags   CliFlags
		wantErr bool
	}{
		{"valid", CliFlags{Reporter: "teamcity", Theme: "orca"}, false},
		{"unknown reporter", CliFlags{Reporter: "xml"}, true},
		{"unknown theme", CliFlags{Theme: "neon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := ResolveConfig(tt.flags)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}
