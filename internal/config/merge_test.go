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

package config

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestMergeKeyValueArrays(t *testing.T) {
	tests := []struct {
		description string
		a, b        []string
		expected    []string
	}{
		{
			description: "override wins per key",
			a:           []string{"FOO=1", "BAR=2"},
			b:           []string{"FOO=9"},
			expected:    []string{"FOO=9", "BAR=2"},
		},
		{
			description: "new keys from override are appended",
			a:           []string{"FOO=1"},
			b:           []string{"BAR=2"},
			expected:    []string{"FOO=1", "BAR=2"},
		},
		{
			description: "empty base",
			a:           nil,
			b:           []string{"FOO=1"},
			expected:    []string{"FOO=1"},
		},
		{
			description: "empty override",
			a:           []string{"FOO=1"},
			b:           nil,
			expected:    []string{"FOO=1"},
		},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, MergeKeyValueArrays(test.a, test.b, "="))
		})
	}
}

func TestMergeKeyValueArraysAssociativity(t *testing.T) {
	// §8: mergeKeyValueArrays(a, mergeKeyValueArrays(b, c)) ==
	// mergeKeyValueArrays(mergeKeyValueArrays(a, b), c) when keys are
	// unique within each operand.
	a := []string{"A=1", "B=1"}
	b := []string{"B=2", "C=2"}
	c := []string{"C=3", "D=3"}

	left := MergeKeyValueArrays(a, MergeKeyValueArrays(b, c, "="), "=")
	right := MergeKeyValueArrays(MergeKeyValueArrays(a, b, "="), c, "=")

	testutil.Run(t, "associative merge", func(t *testutil.T) {
		t.CheckDeepEqual(toMap(right), toMap(left))
	})
}

func toMap(kvs []string) map[string]string {
	out := map[string]string{}
	for _, kv := range kvs {
		k, v := splitKV(kv, "=")
		out[k] = v
	}
	return out
}

func TestMergeRecursive(t *testing.T) {
	tests := []struct {
		description string
		base        map[string]interface{}
		override    map[string]interface{}
		expected    map[string]interface{}
	}{
		{
			description: "scalar override wins",
			base:        map[string]interface{}{"replicas": float64(1)},
			override:    map[string]interface{}{"replicas": float64(3)},
			expected:    map[string]interface{}{"replicas": float64(3)},
		},
		{
			description: "nested maps merge key by key",
			base: map[string]interface{}{
				"resources": map[string]interface{}{"cpu": "100m", "memory": "128Mi"},
			},
			override: map[string]interface{}{
				"resources": map[string]interface{}{"cpu": "200m"},
			},
			expected: map[string]interface{}{
				"resources": map[string]interface{}{"cpu": "200m", "memory": "128Mi"},
			},
		},
		{
			description: "key=value arrays merge by key",
			base: map[string]interface{}{
				"values": []interface{}{"FOO=1", "BAR=2"},
			},
			override: map[string]interface{}{
				"values": []interface{}{"FOO=9"},
			},
			expected: map[string]interface{}{
				"values": []interface{}{"FOO=9", "BAR=2"},
			},
		},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, MergeRecursive(test.base, test.override))
		})
	}
}
