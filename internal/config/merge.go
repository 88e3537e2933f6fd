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

import "strings"

// MergeKeyValueArrays merges two "key=value"-string arrays, second operand
// wins per key, preserving the first-seen order of keys from a, then
// appending any new keys introduced by b in their declared order. This
// satisfies the §8 associativity property: merging is determined purely
// by which operand last declared a key, independent of grouping.
func MergeKeyValueArrays(a, b []string, sep string) []string {
	order := make([]string, 0, len(a)+len(b))
	values := make(map[string]string, len(a)+len(b))

	for _, kv := range a {
		k, v := splitKV(kv, sep)
		if _, seen := values[k]; !seen {
			order = append(order, k)
		}
		values[k] = v
	}
	for _, kv := range b {
		k, v := splitKV(kv, sep)
		if _, seen := values[k]; !seen {
			order = append(order, k)
		}
		values[k] = v
	}

	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, k+sep+values[k])
	}
	return out
}

func splitKV(kv, sep string) (string, string) {
	k, v, found := strings.Cut(kv, sep)
	if !found {
		return kv, ""
	}
	return k, v
}

// MergeRecursive performs the §4.3 step-4 recursive merge of a service's
// declared config over GlobalConfig defaults: inner maps are merged
// key-by-key (recursing into nested maps), arrays of "key=value" strings
// are merged via MergeKeyValueArrays, and any other value type has the
// override (second operand) win outright.
func MergeRecursive(base, override map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, ov := range override {
		bv, exists := out[k]
		if !exists {
			out[k] = ov
			continue
		}
		out[k] = mergeValue(bv, ov)
	}
	return out
}

func mergeValue(base, override interface{}) interface{} {
	baseMap, baseIsMap := base.(map[string]interface{})
	overrideMap, overrideIsMap := override.(map[string]interface{})
	if baseIsMap && overrideIsMap {
		return MergeRecursive(baseMap, overrideMap)
	}

	baseArr, baseIsArr := toStringSlice(base)
	overrideArr, overrideIsArr := toStringSlice(override)
	if baseIsArr && overrideIsArr && looksLikeKeyValueArray(baseArr) && looksLikeKeyValueArray(overrideArr) {
		merged := MergeKeyValueArrays(baseArr, overrideArr, "=")
		result := make([]interface{}, len(merged))
		for i, v := range merged {
			result[i] = v
		}
		return result
	}

	return override
}

func toStringSlice(v interface{}) ([]string, bool) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func looksLikeKeyValueArray(values []string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if !strings.Contains(v, "=") {
			return false
		}
	}
	return true
}
