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

	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestBuildEngineFor(t *testing.T) {
	tests := []struct {
		description string
		deployable  *model.Deployable
		expected    model.BuildEngine
	}{
		{
			description: "no docker spec builds natively",
			deployable:  &model.Deployable{},
			expected:    model.BuildEngineNative,
		},
		{
			description: "docker spec without a pipeline id builds natively",
			deployable:  &model.Deployable{Docker: &model.DockerSpec{}},
			expected:    model.BuildEngineNative,
		},
		{
			description: "docker spec with an after-build pipeline id builds externally",
			deployable:  &model.Deployable{Docker: &model.DockerSpec{AfterBuildPipelineID: "pipeline-1"}},
			expected:    model.BuildEngineExternal,
		},
	}
	for _, test := range tests {
		testutil.Run(t, test.description, func(t *testutil.T) {
			t.CheckDeepEqual(test.expected, buildEngineFor(test.deployable))
		})
	}
}
