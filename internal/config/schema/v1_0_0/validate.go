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
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

//go:embed schema.json
var schemaJSON []byte

// Validator validates a decoded document against this version's JSON
// schema and, on success, decodes it into Spec.
type Validator struct{}

// Validate implements schema.Validator.
func (Validator) Validate(raw map[string]interface{}) (Spec, []string, error) {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return Spec{}, nil, lifecycleerrors.NewTransient(err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return Spec{}, errs, lifecycleerrors.NewConfigError("schema validation failed", errs...)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return Spec{}, nil, lifecycleerrors.NewTransient(err)
	}
	var spec Spec
	if err := json.Unmarshal(encoded, &spec); err != nil {
		return Spec{}, nil, lifecycleerrors.NewConfigError(fmt.Sprintf("decoding spec: %v", err))
	}

	for _, svc := range spec.Services {
		if _, err := svc.DetectType(); err != nil {
			return Spec{}, nil, err
		}
	}

	return spec, nil, nil
}

func errNoType(service string) error {
	return lifecycleerrors.NewConfigError(fmt.Sprintf("service %q declares no recognised deploy type", service))
}

func errMultipleTypes(service string) error {
	return lifecycleerrors.NewConfigError(fmt.Sprintf("service %q declares more than one deploy type", service))
}
