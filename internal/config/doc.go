// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Every field is optional in the file; command-line flags may supply the
// input list and output directory instead.
package config
