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

package imagebuild

import (
	"context"
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestExternalCIBuilderPipelineSpecStages(t *testing.T) {
	builder := &ExternalCIBuilder{RunnerCLI: "runner"}

	testutil.Run(t, "base stages only", func(t *testutil.T) {
		req := sampleRequest()
		req.Deployable.Docker = &model.DockerSpec{}
		spec := builder.pipelineSpec(req)
		t.CheckDeepEqual([]string{"Checkout", "Build"}, spec.Stages)
	})

	testutil.Run(t, "adds InitContainer and PostBuild when configured", func(t *testutil.T) {
		req := sampleRequest()
		req.Deployable.Docker = &model.DockerSpec{
			InitDockerfilePath:   "Dockerfile.init",
			AfterBuildPipelineID: "abc",
		}
		spec := builder.pipelineSpec(req)
		t.CheckDeepEqual([]string{"Checkout", "Build", "InitContainer", "PostBuild"}, spec.Stages)
	})
}

func TestExternalCIBuilderBuildParsesPipelineID(t *testing.T) {
	builder := &ExternalCIBuilder{
		RunnerCLI: "runner",
		Run: func(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
			return []byte("pipeline started: 5f3a2b1c9d8e7f6a5b4c3d2e\n"), nil
		},
	}

	testutil.Run(t, "extracts 24-hex pipeline id from stdout", func(t *testutil.T) {
		req := sampleRequest()
		req.Deployable.Docker = &model.DockerSpec{}
		result, err := builder.Build(context.Background(), req)
		t.CheckError(false, err)
		t.CheckDeepEqual("build-1-deploy-1", result.Tag)
	})
}

func TestExternalCIBuilderBuildNoPipelineID(t *testing.T) {
	builder := &ExternalCIBuilder{
		RunnerCLI: "runner",
		Run: func(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
			return []byte("no id here"), nil
		},
	}

	testutil.Run(t, "errors when stdout has no hex id", func(t *testutil.T) {
		req := sampleRequest()
		req.Deployable.Docker = &model.DockerSpec{}
		_, err := builder.Build(context.Background(), req)
		t.CheckError(true, err)
	})
}
