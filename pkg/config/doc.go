// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (optional .env files) and
// github.com/caarlos0/env/v11 (struct tag parsing). Every package in this module
// owns its own env-tagged Config struct; the binary loads each of them once at
// start-up:
//
//	var mfaCfg mfa.Config
//	config.MustLoad(&mfaCfg)
//
// Parsed values are cached per type, so repeated Load calls are cheap and always
// return the same values. A struct that implements Validator is checked right after
// parsing and rejected with ErrInvalidConfig when invalid.
//
// Parse bypasses the cache, which is what tests that set variables with t.Setenv want.
package config
