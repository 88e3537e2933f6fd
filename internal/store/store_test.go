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

package store

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestGormFieldName(t *testing.T) {
	tests := []struct {
		description string
		input       string
		expected    string
	}{
		{description: "empty", input: "", expected: ""},
		{description: "lower camel", input: "deployable", expected: "Deployable"},
		{description: "already capitalised", input: "Repository", expected: "Repository"},
		{description: "single rune", input: "a", expected: "A"},
		{description: "nested dotted path", input: "pullRequest.repository", expected: "PullRequest.Repository"},
		{description: "three level dotted path", input: "build.pullRequest.repository", expected: "Build.PullRequest.Repository"},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, gormFieldName(test.input))
		})
	}
}

func TestToSnakeColumn(t *testing.T) {
	tests := []struct {
		description string
		field       string
		expected    string
	}{
		{description: "createdAt", field: "createdAt", expected: "created_at"},
		{description: "updatedAt", field: "updatedAt", expected: "updated_at"},
		{description: "status passthrough", field: "status", expected: "status"},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, toSnakeColumn(test.field))
		})
	}
}
