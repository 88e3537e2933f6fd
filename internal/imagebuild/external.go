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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"

	"sigs.k8s.io/yaml"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// ErrNoPipelineID is returned when the runner CLI's stdout contains no
// recognisable pipeline id.
var ErrNoPipelineID = fmt.Errorf("imagebuild: no pipeline id found in runner output")

var pipelineIDPattern = regexp.MustCompile(`[0-9a-fA-F]{24}`)

// pipelineSpec is the single-file pipeline document §4.7.2 describes.
type pipelineSpec struct {
	Version     string            `json:"version"`
	Stages      []string          `json:"stages"`
	Checkout    checkoutStage     `json:"checkout"`
	Build       buildStage        `json:"build"`
	InitContainer *buildStage     `json:"initContainer,omitempty"`
	PostBuild   *buildStage       `json:"postBuild,omitempty"`
	Annotations map[string]string `json:"annotations"`
}

type checkoutStage struct {
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	SHA    string `json:"sha"`
}

type buildStage struct {
	Dockerfile string            `json:"dockerfile"`
	Args       map[string]string `json:"args"`
	Image      string            `json:"image"`
}

// ExternalCIBuilder generates a pipeline spec file and shells out to a
// configured runner CLI (§4.7.2).
type ExternalCIBuilder struct {
	RunnerCLI string
	Run       func(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error)
}

// Build marshals the pipeline spec to YAML, pipes it to the runner CLI on
// stdin (`run -f -`), and parses a 24-hex pipeline id from stdout.
func (b *ExternalCIBuilder) Build(ctx context.Context, req Request) (Result, error) {
	spec := b.pipelineSpec(req)

	raw, err := yaml.Marshal(spec)
	if err != nil {
		return Result{}, lifecycleerrors.NewPermanent(fmt.Errorf("marshaling pipeline spec: %w", err))
	}

	run := b.Run
	if run == nil {
		run = runCommand
	}

	stdout, err := run(ctx, b.RunnerCLI, raw, "run", "-f", "-")
	if err != nil {
		return Result{}, lifecycleerrors.NewTransient(fmt.Errorf("invoking runner CLI: %w", err))
	}

	match := pipelineIDPattern.Find(stdout)
	if match == nil {
		return Result{}, lifecycleerrors.NewPermanent(ErrNoPipelineID)
	}

	return Result{
		Tag:      req.Tag(),
		ImageRef: req.ImageRef(),
		Logs:     string(stdout),
	}, nil
}

func (b *ExternalCIBuilder) pipelineSpec(req Request) pipelineSpec {
	stages := []string{"Checkout", "Build"}

	var initStage *buildStage
	if req.Deployable.Docker != nil && req.Deployable.Docker.InitDockerfilePath != "" {
		stages = append(stages, "InitContainer")
		initStage = &buildStage{Dockerfile: req.Deployable.Docker.InitDockerfilePath}
	}

	var postBuild *buildStage
	if req.Deployable.Docker != nil && req.Deployable.Docker.AfterBuildPipelineID != "" {
		stages = append(stages, "PostBuild")
		postBuild = &buildStage{Image: req.Deployable.Docker.AfterBuildPipelineID}
	}

	dockerfile := "Dockerfile"
	if req.Deployable.Docker != nil && req.Deployable.Docker.DockerfilePath != "" {
		dockerfile = req.Deployable.Docker.DockerfilePath
	}

	args := map[string]string{}
	for k := range req.Deployable.Env {
		args[k] = fmt.Sprintf("${{%s}}", k)
	}

	author := ""
	if req.Build.PullRequest != nil {
		author = req.Build.PullRequest.GithubLogin
	}

	return pipelineSpec{
		Version:  "1",
		Stages:   stages,
		Checkout: checkoutStage{Repo: req.RepoHTMLURL, Branch: req.Deploy.BranchName, SHA: req.Build.SHA},
		Build: buildStage{
			Dockerfile: dockerfile,
			Args:       args,
			Image:      req.ImageRef(),
		},
		InitContainer: initStage,
		PostBuild:     postBuild,
		Annotations: map[string]string{
			"uuid":       req.BuildUUID,
			"deployUUID": req.Deploy.UUID,
			"branch":     req.Deploy.BranchName,
			"repo":       req.RepoHTMLURL,
			"author":     author,
		},
	}
}

func runCommand(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}
