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

// Package validation holds cross-version structural checks that apply
// after a schema.Validator has already accepted a document: checks that
// span the whole Spec rather than one field, mirroring the teacher's own
// top-level pkg/skaffold/schema/validation package sitting above the
// per-version schema registry.
package validation

import (
	"fmt"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// Validate runs structural checks that a per-version JSON schema can't
// express: unique service names and deploymentDependsOn references that
// resolve to a declared service.
func Validate(spec v1_0_0.Spec) error {
	names := map[string]bool{}
	for _, svc := range spec.Services {
		if names[svc.Name] {
			return lifecycleerrors.NewConfigError(fmt.Sprintf("duplicate service name %q", svc.Name))
		}
		names[svc.Name] = true
	}
	for _, svc := range spec.Services {
		for _, dep := range svc.DeploymentDependsOn {
			if !names[dep] {
				return lifecycleerrors.NewConfigError(fmt.Sprintf("service %q depends on undeclared service %q", svc.Name, dep))
			}
		}
	}
	for _, wh := range spec.Webhooks {
		switch wh.Type {
		case "codefresh", "docker", "command":
		default:
			return lifecycleerrors.NewConfigError(fmt.Sprintf("webhook %q has unknown type %q", wh.Name, wh.Type))
		}
	}
	return nil
}
