// Package config defines the application's typed configuration and loads it
// from environment variables and an optional YAML file at process start.
// Configuration errors are the only failures allowed to abort the process;
// everything downstream degrades gracefully instead.
package config
