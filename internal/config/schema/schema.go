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

// Package schema is the static multi-version schema registry (§4.3 step 2),
// mirroring the teacher's own pkg/skaffold/schema/v1alphaN layout: one
// sub-package per schema version, registered here by exact semver string.
package schema

import (
	"fmt"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// Validator validates a decoded YAML document (as a generic
// map[string]interface{}, post sigs.k8s.io/yaml decode) against one schema
// version and, on success, unmarshals it into that version's typed Spec.
type Validator interface {
	// Validate checks raw against the version's JSON schema, rejecting
	// unknown properties, and returns the decoded, typed Spec.
	Validate(raw map[string]interface{}) (v1_0_0.Spec, []string, error)
}

var registry = map[string]Validator{
	"1.0.0": v1_0_0.Validator{},
}

// Lookup resolves a schema version string to its Validator.
func Lookup(version string) (Validator, error) {
	v, ok := registry[version]
	if !ok {
		return nil, lifecycleerrors.NewConfigError(fmt.Sprintf("unsupported schema version %q", version))
	}
	return v, nil
}

// Versions lists every registered schema version.
func Versions() []string {
	out := make([]string, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	return out
}
