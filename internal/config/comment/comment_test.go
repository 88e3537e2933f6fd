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

package comment

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestParse(t *testing.T) {
	tests := []struct {
		description string
		body        string
		expected    ParseResult
	}{
		{
			description: "no edit markers yields empty result",
			body:        "just a plain comment",
			expected: ParseResult{
				Services:          map[string]ServiceSelection{},
				CommentRuntimeEnv: map[string]string{},
			},
		},
		{
			description: "checked and unchecked services",
			body: "intro\n" + HEADER + "\n" +
				"[x] api: feature/my-branch\n" +
				"[ ] worker: main\n" +
				FOOTER + "\nfooter text",
			expected: ParseResult{
				Services: map[string]ServiceSelection{
					"api":    {Name: "api", Active: true, BranchOrURL: "feature/my-branch"},
					"worker": {Name: "worker", Active: false, BranchOrURL: "main"},
				},
				CommentRuntimeEnv: map[string]string{},
			},
		},
		{
			description: "url and ENV lines",
			body: HEADER + "\n" +
				"[x] api: main\n" +
				"url:api:api.preview.example.com\n" +
				"ENV:FEATURE_FLAG:enabled\n" +
				FOOTER,
			expected: ParseResult{
				Services: map[string]ServiceSelection{
					"api": {Name: "api", Active: true, BranchOrURL: "main", VanityURL: "api.preview.example.com"},
				},
				CommentRuntimeEnv: map[string]string{"FEATURE_FLAG": "enabled"},
			},
		},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, Parse(test.body))
		})
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	services := []ServiceSelection{
		{Name: "api", Active: true, BranchOrURL: "main"},
		{Name: "worker", Active: false, BranchOrURL: "develop"},
	}
	body := Render("intro", services, "footer")
	parsed := Parse(body)

	testutil.Run(t, "round trip preserves selection state", func(t *testutil.T) {
		t.CheckDeepEqual(true, parsed.Services["api"].Active)
		t.CheckDeepEqual(false, parsed.Services["worker"].Active)
		t.CheckDeepEqual("main", parsed.Services["api"].BranchOrURL)
	})
}
