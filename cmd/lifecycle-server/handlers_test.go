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

package main

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestIntParam(t *testing.T) {
	tests := []struct {
		description string
		raw         string
		fallback    int
		expected    int
	}{
		{description: "empty uses fallback", raw: "", fallback: 50, expected: 50},
		{description: "valid integer", raw: "7", fallback: 50, expected: 7},
		{description: "non-numeric uses fallback", raw: "nope", fallback: 50, expected: 50},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, intParam(test.raw, test.fallback))
		})
	}
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		description   string
		fullName      string
		expectedOwner string
		expectedRepo  string
	}{
		{description: "owner and repo", fullName: "Underdog-Inc/lifecycle-sub002", expectedOwner: "Underdog-Inc", expectedRepo: "lifecycle-sub002"},
		{description: "no slash", fullName: "no-owner", expectedOwner: "no-owner", expectedRepo: ""},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			owner, repo := splitFullName(test.fullName)
			t.CheckDeepEqual(test.expectedOwner, owner)
			t.CheckDeepEqual(test.expectedRepo, repo)
		})
	}
}
