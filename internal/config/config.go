package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dkoosis/runreport/pkg/runlog"
)

// Reporter names.
const (
	ReporterDefault  = "default"
	ReporterTeamCity = "teamcity"
	ReporterAuto     = "auto"
)

// Sources a resolved value can come from.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

const (
	configFileName = ".runreport.yaml"
	appDirName     = "runreport"
)

// CliFlags holds the values of command-line flags. The *Set fields track
// whether the user passed the flag explicitly.
type CliFlags struct {
	Reporter   string
	Theme      string
	NoColor    bool
	StopOnFail bool
	Strict     bool
	Debug      bool
	RootFlowID string

	NoColorSet    bool
	StopOnFailSet bool
	StrictSet     bool
	DebugSet      bool
	RootFlowIDSet bool
}

// AppConfig represents the contents of .runreport.yaml.
type AppConfig struct {
	Reporter   string `yaml:"reporter"`
	Theme      string `yaml:"theme"`
	NoColor    bool   `yaml:"no_color"`
	StopOnFail bool   `yaml:"stop_on_fail"`
	Strict     bool   `yaml:"strict"`
	Debug      bool   `yaml:"debug"`
	RootFlowID string `yaml:"root_flow_id"`
}

// ResolvedConfig holds the final configuration after applying all priority rules.
type ResolvedConfig struct {
	Reporter   string // default or teamcity; auto is resolved away
	Theme      string
	NoColor    bool
	StopOnFail bool
	Strict     bool
	Debug      bool
	RootFlowID string

	ConfigPath string // empty when no file was found

	ReporterSource   string
	ThemeSource      string
	NoColorSource    string
	StopOnFailSource string
	StrictSource     string
	DebugSource      string
	RootFlowIDSource string
}

// LoadConfig reads the config file, if any. It returns the parsed file and
// its path; with no file present it returns an empty config and "".
func LoadConfig() (*AppConfig, string, error) {
	cfg := &AppConfig{}
	path := getConfigPath()
	if path == "" {
		return cfg, "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, path, nil
}

// getConfigPath finds the config file, checking the local directory first,
// then the user config directory.
func getConfigPath() string {
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName
	}
	configHome, err := os.UserConfigDir()
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, appDirName, configFileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}

// ResolveConfig merges the config file, environment and flags.
func ResolveConfig(flags CliFlags) (*ResolvedConfig, error) {
	file, path, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	resolved := Resolve(flags, file)
	resolved.ConfigPath = path
	if err := validateResolvedConfig(resolved); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return resolved, nil
}

// Resolve applies flags and environment on top of file. It does not validate.
func Resolve(flags CliFlags, file *AppConfig) *ResolvedConfig {
	if file == nil {
		file = &AppConfig{}
	}
	r := &ResolvedConfig{}

	r.Reporter, r.ReporterSource = resolveString(flags.Reporter, flags.Reporter != "", "RUNREPORT_REPORTER", file.Reporter, ReporterAuto)
	if r.Reporter == ReporterAuto {
		r.Reporter = ReporterDefault
		if os.Getenv("TEAMCITY_PROJECT_NAME") != "" {
			r.Reporter = ReporterTeamCity
		}
	}
	r.Theme, r.ThemeSource = resolveString(flags.Theme, flags.Theme != "", "RUNREPORT_THEME", file.Theme, runlog.ThemeNames[0])
	r.RootFlowID, r.RootFlowIDSource = resolveString(flags.RootFlowID, flags.RootFlowIDSet, "TEAMCITY_PROCESS_FLOW_ID", file.RootFlowID, "")

	r.NoColor, r.NoColorSource = resolveBool(flags.NoColor, flags.NoColorSet, file.NoColor, "RUNREPORT_NO_COLOR", "NO_COLOR")
	r.StopOnFail, r.StopOnFailSource = resolveBool(flags.StopOnFail, flags.StopOnFailSet, file.StopOnFail, "RUNREPORT_STOP_ON_FAIL")
	r.Strict, r.StrictSource = resolveBool(flags.Strict, flags.StrictSet, file.Strict, "RUNREPORT_STRICT")
	r.Debug, r.DebugSource = resolveBool(flags.Debug, flags.DebugSet, file.Debug, "RUNREPORT_DEBUG")
	return r
}

func resolveString(cli string, cliSet bool, envKey, file, def string) (string, string) {
	if cliSet {
		return cli, SourceCLI
	}
	if v := os.Getenv(envKey); v != "" {
		return v, SourceEnv
	}
	if file != "" {
		return file, SourceFile
	}
	return def, SourceDefault
}

// resolveBool treats a false file value as unset: YAML cannot tell an absent
// key from an explicit false.
func resolveBool(cli, cliSet, file bool, envKeys ...string) (bool, string) {
	if cliSet {
		return cli, SourceCLI
	}
	if env := getEnvBool(envKeys...); env != nil {
		return *env, SourceEnv
	}
	if file {
		return true, SourceFile
	}
	return false, SourceDefault
}

// getEnvBool reads a boolean from environment variables, trying multiple keys.
// Returns nil if none are set to a parseable value.
func getEnvBool(keys ...string) *bool {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return &b
			}
		}
	}
	return nil
}

// ErrInvalid marks a configuration value outside its allowed set.
var ErrInvalid = errors.New("invalid configuration")

func validateResolvedConfig(cfg *ResolvedConfig) error {
	if cfg.Reporter != ReporterDefault && cfg.Reporter != ReporterTeamCity {
		return fmt.Errorf("%w: reporter %q from %s (must be: default, teamcity, auto)", ErrInvalid, cfg.Reporter, cfg.ReporterSource)
	}
	if !slices.Contains(runlog.ThemeNames, cfg.Theme) {
		return fmt.Errorf("%w: theme %q from %s (must be one of %v)", ErrInvalid, cfg.Theme, cfg.ThemeSource, runlog.ThemeNames)
	}
	return nil
}
