// Package config loads ascgate settings.
//
// Sources, later ones winning:
//
//  1. built-in defaults (LoadDefaults);
//  2. a JSON or YAML file named with -c/--config;
//  3. ASC_* environment variables;
//  4. command-line flags registered by BindFlags.
//
// Durations are timex.Duration, so every source accepts "30s" style values.
package config
