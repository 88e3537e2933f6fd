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

package v1_0_0

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		description string
		svc         ServiceSpec
		expected    string
		shouldErr   bool
	}{
		{
			description: "docker type",
			svc:         ServiceSpec{Name: "api", Docker: &DockerSpec{DockerfilePath: "Dockerfile"}},
			expected:    "docker",
		},
		{
			description: "helm type",
			svc:         ServiceSpec{Name: "api", Helm: &HelmSpec{Chart: HelmChart{Name: "c"}}},
			expected:    "helm",
		},
		{
			description: "no type declared",
			svc:         ServiceSpec{Name: "api"},
			shouldErr:   true,
		},
		{
			description: "multiple types declared",
			svc:         ServiceSpec{Name: "api", Docker: &DockerSpec{}, Helm: &HelmSpec{}},
			shouldErr:   true,
		},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			got, err := test.svc.DetectType()
			t.CheckErrorAndDeepEqual(test.shouldErr, err, test.expected, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		description string
		raw         map[string]interface{}
		shouldErr   bool
	}{
		{
			description: "valid minimal doc",
			raw: map[string]interface{}{
				"version": "1.0.0",
				"services": []interface{}{
					map[string]interface{}{
						"name":   "api",
						"docker": map[string]interface{}{"dockerfilePath": "Dockerfile"},
					},
				},
			},
		},
		{
			description: "unknown top-level property rejected",
			raw: map[string]interface{}{
				"version":  "1.0.0",
				"services": []interface{}{map[string]interface{}{"name": "api", "docker": map[string]interface{}{}}},
				"bogus":    true,
			},
			shouldErr: true,
		},
		{
			description: "missing services rejected",
			raw: map[string]interface{}{
				"version": "1.0.0",
			},
			shouldErr: true,
		},
		{
			description: "service with no deploy type rejected",
			raw: map[string]interface{}{
				"version":  "1.0.0",
				"services": []interface{}{map[string]interface{}{"name": "api"}},
			},
			shouldErr: true,
		},
	}
	v := Validator{}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			_, _, err := v.Validate(test.raw)
			t.CheckError(test.shouldErr, err)
		})
	}
}
