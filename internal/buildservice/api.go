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
	"context"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config"
)

// Graph returns the build's persisted dependency graph, running §4.3 and
// persisting the result on first access if the build hasn't resolved one
// yet (§6 GET /builds/{uuid}/graph).
func (s *Service) Graph(ctx context.Context, buildUUID string) (string, error) {
	build, err := s.Store.FindBuildByUUID(ctx, buildUUID, "pullRequest.[repository]")
	if err != nil {
		return "", err
	}
	if build.DependencyGraph != "" {
		return build.DependencyGraph, nil
	}

	owner, repoName := splitFullName(build.PullRequest.Repository.FullName)
	yamlBytes, err := s.Forge.GetYamlFileContent(ctx, owner, repoName, build.SHA)
	if err != nil {
		return "", err
	}

	result, err := config.Resolve(yamlBytes, nil, "")
	if err != nil {
		return "", err
	}
	if err := s.Store.Patch(ctx, build, map[string]interface{}{"DependencyGraph": result.GraphDOT}); err != nil {
		return "", err
	}
	return result.GraphDOT, nil
}

// ForceWebhooks re-runs the §4.9 dispatch pass for a build's current
// status regardless of whether that status transition already fired it,
// reporting whether any webhook entry existed to dispatch (§6 POST
// /builds/{uuid}/webhooks).
func (s *Service) ForceWebhooks(ctx context.Context, buildUUID string) (bool, error) {
	build, err := s.Store.FindBuildByUUID(ctx, buildUUID, "")
	if err != nil {
		return false, err
	}
	if build.WebhooksYaml == "" {
		return false, nil
	}
	return true, s.Webhooks.Dispatch(ctx, build, build.Status)
}

// ValidateYAML runs §4.3's parse/schema/graph steps over yamlBytes without
// persisting anything, for the standalone schema-check endpoint (§6 POST
// /schema/validate).
func (s *Service) ValidateYAML(ctx context.Context, yamlBytes []byte) (bool, []string) {
	if _, err := config.Resolve(yamlBytes, nil, ""); err != nil {
		return false, []string{err.Error()}
	}
	return true, nil
}

// FetchYAMLForValidation resolves the lifecycle YAML at owner/repo@branch
// through the forge, for the `source:'path'` form of schema/validate.
func (s *Service) FetchYAMLForValidation(ctx context.Context, owner, repo, branch string) ([]byte, error) {
	ref, err := s.Forge.GetRefForBranch(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}
	return s.Forge.GetYamlFileContent(ctx, owner, repo, ref.GetObject().GetSHA())
}
