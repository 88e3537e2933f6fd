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

// Package testutil provides the small table-driven test harness used
// across this module's test files: Run wraps t.Run and hands the callback
// a *T with deep-equal assertion helpers.
package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// T wraps *testing.T with the assertion helpers used by every table-driven
// test in this module.
type T struct {
	*testing.T
}

// Run runs fn as a subtest named description.
func Run(t *testing.T, description string, fn func(t *T)) {
	t.Run(description, func(t *testing.T) {
		fn(&T{t})
	})
}

// CheckDeepEqual fails the test if expected and actual are not deeply
// equal, printing a diff.
func (t *T) CheckDeepEqual(expected, actual interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(expected, actual, opts...); diff != "" {
		t.Errorf("mismatch (-expected +actual):\n%s", diff)
	}
}

// CheckError fails the test if shouldErr doesn't match whether err is nil.
func (t *T) CheckError(shouldErr bool, err error) {
	t.Helper()
	if shouldErr && err == nil {
		t.Errorf("expected error, got none")
	}
	if !shouldErr && err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// CheckErrorAndDeepEqual combines CheckError with CheckDeepEqual, skipping
// the equality check when an error was expected.
func (t *T) CheckErrorAndDeepEqual(shouldErr bool, err error, expected, actual interface{}, opts ...cmp.Option) {
	t.Helper()
	t.CheckError(shouldErr, err)
	if shouldErr {
		return
	}
	t.CheckDeepEqual(expected, actual, opts...)
}

// CheckDeepNotEqual fails if expected and actual are deeply equal.
func (t *T) CheckDeepNotEqual(expected, actual interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(expected, actual, opts...); diff == "" {
		t.Errorf("expected values to differ, both were:\n%+v", actual)
	}
}
