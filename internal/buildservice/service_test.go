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

package buildservice

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		description string
		input       string
		owner       string
		repo        string
	}{
		{description: "owner/repo", input: "Underdog-Inc/lifecycle-sub002", owner: "Underdog-Inc", repo: "lifecycle-sub002"},
		{description: "no slash", input: "lifecycle-sub002", owner: "lifecycle-sub002", repo: ""},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			owner, repo := splitFullName(test.input)
			t.CheckDeepEqual(test.owner, owner)
			t.CheckDeepEqual(test.repo, repo)
		})
	}
}

func TestBuildUUID(t *testing.T) {
	repo := &model.Repository{FullName: "Underdog-Inc/Lifecycle_Sub002"}
	pr := &model.PullRequest{PRNumber: 42}
	testutil.Run(t, "derives a dns-label-safe uuid", func(t *testutil.T) {
		t.CheckDeepEqual("underdog-inc-lifecycle-sub002-pr-42", buildUUID(repo, pr))
	})
}

func TestDeployUUID(t *testing.T) {
	build := &model.Build{UUID: "acme-widget-pr-7"}
	testutil.Run(t, "derives a per-service uuid", func(t *testutil.T) {
		t.CheckDeepEqual("acme-widget-pr-7-api-gateway", deployUUID(build, "API Gateway"))
	})
}

func TestEnvironmentIDFor(t *testing.T) {
	tests := []struct {
		description string
		repo        *model.Repository
		expected    uint
	}{
		{description: "nil default env", repo: &model.Repository{}, expected: 0},
		{description: "default env set", repo: &model.Repository{DefaultEnvID: uintPtr(9)}, expected: 9},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, environmentIDFor(test.repo))
		})
	}
}

func TestIsConflict(t *testing.T) {
	var target *lifecycleerrors.ConflictError
	if !isConflict(lifecycleerrors.NewConflict("Build", "uuid"), &target) {
		t.Fatal("expected isConflict to report true for a ConflictError")
	}
	if target == nil {
		t.Fatal("expected target to be populated")
	}

	target = nil
	if isConflict(lifecycleerrors.NewTransient(nil), &target) {
		t.Fatal("expected isConflict to report false for a Transient error")
	}
}

func uintPtr(v uint) *uint { return &v }
