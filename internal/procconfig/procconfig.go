/*
Copyright 2026 The Lifecycle Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package procconfig loads the fixed, short environment-variable surface
// named in §6 into a typed struct. This is the one ambient concern this
// module renders on the standard library rather than a third-party config
// loader: the variable list is short, flat and fixed, and no pack library
// (viper, envconfig, ...) covers "populate a struct from os.Getenv" any
// more directly than os.Getenv itself (see DESIGN.md).
package procconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full set of environment-derived process configuration.
type Config struct {
	DatabaseURL string
	RedisURL    string
	JobVersion  string
	LogLevel    string
	AppHost     string

	GitHubAppID            string
	GitHubInstallationID   string
	GitHubPrivateKey       string
	GitHubWebhookSecret    string
	GitHubClientID         string
	GitHubClientSecret     string
	GitHubBaseURL          string
	MaxGitHubAPIRequest    int
	GitHubAPIRequestWindow time.Duration
}

// required names the env vars that must be non-empty for the process to
// start; forge credentials are required because no component can do
// anything useful without them.
var required = []string{
	"DATABASE_URL",
	"REDIS_URL",
	"GITHUB_APP_ID",
	"GITHUB_INSTALLATION_ID",
	"GITHUB_PRIVATE_KEY",
	"GITHUB_WEBHOOK_SECRET",
}

// Load reads the §6 environment variable list, failing fast if any
// required forge credential or storage URL is missing.
func Load() (Config, error) {
	for _, name := range required {
		if os.Getenv(name) == "" {
			return Config{}, fmt.Errorf("procconfig: required environment variable %s is not set", name)
		}
	}

	maxReq, err := parseIntDefault("MAX_GITHUB_API_REQUEST", 40)
	if err != nil {
		return Config{}, err
	}
	windowSeconds, err := parseIntDefault("GITHUB_API_REQUEST_INTERVAL", 10)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		JobVersion:             os.Getenv("JOB_VERSION"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		AppHost:                envDefault("APP_HOST", "0.0.0.0:8080"),
		GitHubAppID:            os.Getenv("GITHUB_APP_ID"),
		GitHubInstallationID:   os.Getenv("GITHUB_INSTALLATION_ID"),
		GitHubPrivateKey:       os.Getenv("GITHUB_PRIVATE_KEY"),
		GitHubWebhookSecret:    os.Getenv("GITHUB_WEBHOOK_SECRET"),
		GitHubClientID:         os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret:     os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubBaseURL:          envDefault("GITHUB_BASE_URL", "https://api.github.com"),
		MaxGitHubAPIRequest:    maxReq,
		GitHubAPIRequestWindow: time.Duration(windowSeconds) * time.Second,
	}
	return cfg, nil
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func parseIntDefault(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("procconfig: %s must be an integer: %w", name, err)
	}
	return v, nil
}
