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

package envrender

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func defaultRenderer() *TemplateRenderer {
	return New(DomainDefaults{
		DefaultUUID:        "dev-0",
		DefaultNamespace:   "env-default",
		DomainDefaultsHTTP: "example.dev",
	})
}

func TestRenderDefaultUUIDFallback(t *testing.T) {
	tests := []struct {
		description string
		tpl         string
		avail       map[string]ServiceEnvFacts
		expected    string
	}{
		{
			description: "public url falls back to default uuid when service absent",
			tpl:         "{{foo_publicUrl}}",
			avail:       map[string]ServiceEnvFacts{},
			expected:    "foo-dev-0.example.dev",
		},
		{
			description: "internal hostname falls back to default uuid and namespace",
			tpl:         "{{foo_internalHostname}}",
			avail:       map[string]ServiceEnvFacts{},
			expected:    "foo-dev-0.env-default.svc.cluster.local",
		},
		{
			description: "uuid falls back to default uuid",
			tpl:         "{{foo_UUID}}",
			avail:       map[string]ServiceEnvFacts{},
			expected:    "dev-0",
		},
	}
	r := defaultRenderer()
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			got, err := r.Render(test.tpl, test.avail, true, "env-pr-1")
			t.CheckErrorAndDeepEqual(false, err, test.expected, got)
		})
	}
}

func TestRenderResolvedPeer(t *testing.T) {
	tests := []struct {
		description string
		tpl         string
		avail       map[string]ServiceEnvFacts
		namespace   string
		expected    string
	}{
		{
			description: "resolved internal hostname gets cluster suffix",
			tpl:         "{{A_internalHostname}}",
			avail:       map[string]ServiceEnvFacts{"A": {InternalHostname: "a-svc"}},
			namespace:   "env-pr-1",
			expected:    "a-svc.env-pr-1.svc.cluster.local",
		},
		{
			description: "resolved internal hostname with suffix segment still gets cluster suffix",
			tpl:         "{{A_internalHostname}}",
			avail:       map[string]ServiceEnvFacts{"A": {InternalHostname: "a-svc-master"}},
			namespace:   "env-pr-1",
			expected:    "a-svc-master.env-pr-1.svc.cluster.local",
		},
		{
			description: "resolved public url used verbatim",
			tpl:         "{{A_publicUrl}}",
			avail:       map[string]ServiceEnvFacts{"A": {PublicURL: "a.example.dev"}},
			namespace:   "env-pr-1",
			expected:    "a.example.dev",
		},
		{
			description: "hyphenated service name round-trips",
			tpl:         "{{my-service_publicUrl}}",
			avail:       map[string]ServiceEnvFacts{"my-service": {PublicURL: "my-service.example.dev"}},
			namespace:   "env-pr-1",
			expected:    "my-service.example.dev",
		},
	}
	r := defaultRenderer()
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			got, err := r.Render(test.tpl, test.avail, false, test.namespace)
			t.CheckErrorAndDeepEqual(false, err, test.expected, got)
		})
	}
}

func TestRenderBuildUUIDNoMatchIsEmpty(t *testing.T) {
	r := defaultRenderer()
	got, err := r.Render("{{buildUUID}}", map[string]ServiceEnvFacts{}, true, "env-pr-1")
	testutil.Run(t, "buildUUID with no match renders empty, not default", func(t *testutil.T) {
		t.CheckErrorAndDeepEqual(false, err, "", got)
	})
}

func TestRenderIdempotence(t *testing.T) {
	// Render idempotence (§8): rendering an already-fully-resolved
	// template again is a no-op, since it contains no more placeholders.
	r := defaultRenderer()
	avail := map[string]ServiceEnvFacts{"A": {PublicURL: "a.example.dev"}}
	first, err := r.Render("{{A_publicUrl}}", avail, false, "env-pr-1")
	testutil.Run(t, "first render resolves", func(t *testutil.T) {
		t.CheckErrorAndDeepEqual(false, err, "a.example.dev", first)
	})
	second, err := r.Render(first, avail, false, "env-pr-1")
	testutil.Run(t, "second render is identity", func(t *testutil.T) {
		t.CheckErrorAndDeepEqual(false, err, first, second)
	})
}

func TestSplitJoinArrayRoundTrip(t *testing.T) {
	tests := []struct {
		description string
		values      []string
	}{
		{description: "empty", values: []string{}},
		{description: "single", values: []string{"a"}},
		{description: "multiple", values: []string{"a", "b", "c"}},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			joined := JoinArray(test.values)
			got := SplitArray(joined)
			if len(test.values) == 0 {
				t.CheckDeepEqual([]string{""}, got)
				return
			}
			t.CheckDeepEqual(test.values, got)
		})
	}
}
