// Package config loads and validates the packflow configuration file. All
// other packages receive configuration through an explicit *Config value;
// nothing reads process-global state.
package config
