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

package procconfig

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	testutil.Run(t, "missing database url errors", func(t *testutil.T) {
		setEnv(t.T, map[string]string{
			"REDIS_URL":             "redis://localhost:6379",
			"GITHUB_APP_ID":         "1",
			"GITHUB_PRIVATE_KEY":    "key",
			"GITHUB_WEBHOOK_SECRET": "secret",
		})
		_, err := Load()
		t.CheckError(true, err)
	})
}

func TestLoadDefaults(t *testing.T) {
	testutil.Run(t, "applies defaults for optional vars", func(t *testutil.T) {
		setEnv(t.T, map[string]string{
			"DATABASE_URL":           "postgres://localhost/lifecycle",
			"REDIS_URL":              "redis://localhost:6379",
			"GITHUB_APP_ID":          "1",
			"GITHUB_INSTALLATION_ID": "1",
			"GITHUB_PRIVATE_KEY":     "key",
			"GITHUB_WEBHOOK_SECRET":  "secret",
		})
		cfg, err := Load()
		t.CheckError(false, err)
		t.CheckDeepEqual("info", cfg.LogLevel)
		t.CheckDeepEqual(40, cfg.MaxGitHubAPIRequest)
	})
}

func TestLoadInvalidInt(t *testing.T) {
	testutil.Run(t, "non-integer MAX_GITHUB_API_REQUEST errors", func(t *testutil.T) {
		setEnv(t.T, map[string]string{
			"DATABASE_URL":           "postgres://localhost/lifecycle",
			"REDIS_URL":              "redis://localhost:6379",
			"GITHUB_APP_ID":          "1",
			"GITHUB_INSTALLATION_ID": "1",
			"GITHUB_PRIVATE_KEY":     "key",
			"GITHUB_WEBHOOK_SECRET":  "secret",
			"MAX_GITHUB_API_REQUEST": "not-a-number",
		})
		_, err := Load()
		t.CheckError(true, err)
	})
}
