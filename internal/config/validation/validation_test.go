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

package validation

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		description string
		spec        v1_0_0.Spec
		shouldErr   bool
	}{
		{
			description: "valid spec with dependency",
			spec: v1_0_0.Spec{
				Services: []v1_0_0.ServiceSpec{
					{Name: "A"},
					{Name: "B", DeploymentDependsOn: []string{"A"}},
				},
			},
		},
		{
			description: "duplicate service name",
			spec: v1_0_0.Spec{
				Services: []v1_0_0.ServiceSpec{{Name: "A"}, {Name: "A"}},
			},
			shouldErr: true,
		},
		{
			description: "dependency on undeclared service",
			spec: v1_0_0.Spec{
				Services: []v1_0_0.ServiceSpec{{Name: "A", DeploymentDependsOn: []string{"missing"}}},
			},
			shouldErr: true,
		},
		{
			description: "unknown webhook type",
			spec: v1_0_0.Spec{
				Services: []v1_0_0.ServiceSpec{{Name: "A"}},
				Webhooks: []v1_0_0.WebhookSpec{{Name: "w", Type: "bogus", State: "DEPLOYED"}},
			},
			shouldErr: true,
		},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			err := Validate(test.spec)
			t.CheckError(test.shouldErr, err)
		})
	}
}
