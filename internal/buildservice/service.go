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

// Package buildservice implements the core state machine (§4.6): the
// Build/Deploy transitions, the five queue-consumer handlers, and the
// aggregator hook that rolls sibling deploy status up into Build.status.
package buildservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/comment"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/envrender"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/forge"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/helmrelease"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/imagebuild"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/store"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/webhook"
)

// Service wires every other component into the §4.6 state machine.
type Service struct {
	Store    *store.Store
	Forge    *forge.Client
	Queue    *queue.Manager
	Redis    *redis.Client
	Renderer *envrender.TemplateRenderer
	Builders map[model.BuildEngine]imagebuild.Builder
	Releaser *helmrelease.Releaser
	Webhooks *webhook.Dispatcher
	Log      *logrus.Entry
}

// OnPullRequestEvent handles `opened`/`synchronize` PR events: fetches the
// lifecycle YAML, upserts the Build row, enqueues a resolve job, and posts
// the status-comment stub (§4.6 transition 1). Actions other than
// opened/synchronize, and pull requests carrying no lifecycle YAML, are
// silently ignored — neither is an error condition.
func (s *Service) OnPullRequestEvent(ctx context.Context, repo *model.Repository, pr *model.PullRequest, action string) error {
	if action != "opened" && action != "synchronize" {
		return nil
	}

	owner, name := splitFullName(repo.FullName)
	yamlBytes, err := s.Forge.GetYamlFileContent(ctx, owner, name, pr.LatestCommit)
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if isNotFound(err, &nf) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(yamlBytes))) == 0 {
		return lifecycleerrors.NewConfigError("lifecycle yaml is empty")
	}

	build, err := s.upsertBuild(ctx, repo, pr)
	if err != nil {
		return err
	}

	runUUID := uuid.NewString()
	if err := s.Store.Patch(ctx, build, map[string]interface{}{
		"RunUUID": runUUID,
		"Status":  model.BuildQueued,
		"SHA":     pr.LatestCommit,
	}); err != nil {
		return err
	}

	if err := s.Queue.EnqueueResolveAndDeployBuild(ctx, queue.ResolveAndDeployBuildPayload{
		BuildID: build.UUID,
		RunUUID: runUUID,
	}); err != nil {
		return err
	}

	stub := comment.Render("Lifecycle is resolving your environment...", nil, "")
	commentID, err := s.Forge.CreateOrUpdatePullRequestComment(ctx, owner, name, pr.PRNumber, pr.StatusCommentID, stub)
	if err != nil {
		return err
	}
	return s.Store.Patch(ctx, pr, map[string]interface{}{"StatusCommentID": commentID})
}

// EnqueueRedeploy re-runs the resolve flow for an existing build (spec's
// `enqueueRedeploy(buildId)` entry point).
func (s *Service) EnqueueRedeploy(ctx context.Context, buildUUID string) error {
	build, err := s.Store.FindBuildByUUID(ctx, buildUUID, "")
	if err != nil {
		return err
	}

	runUUID := uuid.NewString()
	if err := s.Store.Patch(ctx, build, map[string]interface{}{
		"RunUUID": runUUID,
		"Status":  model.BuildQueued,
	}); err != nil {
		return err
	}
	return s.Queue.EnqueueResolveAndDeployBuild(ctx, queue.ResolveAndDeployBuildPayload{
		BuildID: build.UUID,
		RunUUID: runUUID,
	})
}

// EnqueueTeardown marks a build TEARING_DOWN and enqueues one teardown job
// per active deploy (spec's `enqueueTeardown(buildUUID)` entry point;
// §4.6 transition 7).
func (s *Service) EnqueueTeardown(ctx context.Context, buildUUID string) error {
	build, err := s.Store.FindBuildByUUID(ctx, buildUUID, "deploys")
	if err != nil {
		return err
	}

	if err := s.Store.Patch(ctx, build, map[string]interface{}{"Status": model.BuildTearingDown}); err != nil {
		return err
	}

	var deploys []model.Deploy
	if err := s.Store.DB().WithContext(ctx).Where("build_id = ? AND active = ?", build.ID, true).Find(&deploys).Error; err != nil {
		return err
	}
	for _, d := range deploys {
		if err := s.Queue.EnqueueTeardown(ctx, queue.TeardownPayload{DeployID: d.UUID}); err != nil {
			return err
		}
	}
	return nil
}

// upsertBuild finds the PR's most recent Build or creates one, per §4.6
// transition 1's "create/update Build" wording.
func (s *Service) upsertBuild(ctx context.Context, repo *model.Repository, pr *model.PullRequest) (*model.Build, error) {
	var existing model.Build
	err := s.Store.DB().WithContext(ctx).Where("pull_request_id = ?", pr.ID).Order("id desc").First(&existing).Error
	if err == nil {
		return &existing, nil
	}

	build := &model.Build{
		UUID:          buildUUID(repo, pr),
		PullRequestID: pr.ID,
		EnvironmentID: environmentIDFor(repo),
		Status:        model.BuildPending,
		SHA:           pr.LatestCommit,
		Namespace:     buildUUID(repo, pr),
	}
	if err := s.Store.Create(ctx, build); err != nil {
		var conflict *lifecycleerrors.ConflictError
		if isConflict(err, &conflict) {
			if rerr := s.Store.DB().WithContext(ctx).Where("uuid = ?", build.UUID).First(&existing).Error; rerr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return build, nil
}

func environmentIDFor(repo *model.Repository) uint {
	if repo.DefaultEnvID != nil {
		return *repo.DefaultEnvID
	}
	return 0
}

func isConflict(err error, target **lifecycleerrors.ConflictError) bool {
	c, ok := err.(*lifecycleerrors.ConflictError)
	if ok {
		*target = c
	}
	return ok
}

func splitFullName(fullName string) (owner, repo string) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 {
		return fullName, ""
	}
	return parts[0], parts[1]
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// buildUUID derives a DNS-label-safe build identifier from the repository
// and PR number, e.g. "owner-repo-pr-42".
func buildUUID(repo *model.Repository, pr *model.PullRequest) string {
	base := nonSlug.ReplaceAllString(strings.ToLower(repo.FullName), "-")
	base = strings.Trim(base, "-")
	return fmt.Sprintf("%s-pr-%d", base, pr.PRNumber)
}

// deployUUID derives a DNS-label-safe per-service deploy identifier.
func deployUUID(build *model.Build, serviceName string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(serviceName), "-")
	slug = strings.Trim(slug, "-")
	return fmt.Sprintf("%s-%s", build.UUID, slug)
}
