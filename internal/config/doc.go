// Package config handles configuration loading and merging for runreport.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--reporter, --theme, --no-color, --stop-on-fail, ...)
//  2. Environment variables (RUNREPORT_*, NO_COLOR, TEAMCITY_*)
//  3. YAML config file (.runreport.yaml in the local directory or
//     $XDG_CONFIG_HOME/runreport/.runreport.yaml)
//  4. Hardcoded defaults
//
// Every resolved value records the source it came from, so --debug can explain
// why a setting took effect.
//
// # Environment Variables
//
//   - RUNREPORT_REPORTER: default, teamcity or auto
//   - RUNREPORT_THEME: default, orca or mono
//   - RUNREPORT_NO_COLOR or NO_COLOR: "true" or "1" disables colors
//   - RUNREPORT_STOP_ON_FAIL, RUNREPORT_STRICT, RUNREPORT_DEBUG: booleans
//   - TEAMCITY_PROCESS_FLOW_ID: root flow ID for the teamcity reporter
//   - TEAMCITY_PROJECT_NAME: when set, the auto reporter resolves to teamcity
package config
