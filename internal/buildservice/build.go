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
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/imagebuild"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue/lock"
)

const buildLockTTL = 30 * time.Minute

// HandleBuildImage is the buildImage-queue consumer (§4.6 transition 3):
// probes the registry for an existing tag, otherwise delegates to the
// deploy's builder engine, and on success enqueues the deploy job.
func (s *Service) HandleBuildImage(ctx context.Context, t *asynq.Task) error {
	var payload queue.BuildImagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return lifecycleerrors.NewPermanent(err)
	}

	held, ok, err := lock.Acquire(ctx, s.Redis, lock.DeployBuildKey(payload.DeployID), buildLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.Log.Infof("build for deploy %s already in flight, skipping", payload.DeployID)
		return nil
	}
	defer held.Release(ctx)

	deploy, err := s.Store.FindDeployByUUID(ctx, payload.DeployID, "deployable|build.[pullRequest.repository]")
	if err != nil {
		return err
	}

	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{"Status": model.DeployCloning}); err != nil {
		return err
	}

	registry, err := s.registryConfig(ctx)
	if err != nil {
		return err
	}

	req := imagebuild.Request{
		Build:       deploy.Build,
		Deployable:  deploy.Deployable,
		Deploy:      deploy,
		ECRDomain:   registry.ECRDomain,
		ECRRepo:     registry.ECRRepo,
		RepoHTMLURL: deploy.Build.PullRequest.Repository.HTMLURL,
		BuildUUID:   deploy.Build.UUID,
	}
	tag := req.Tag()

	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{"Status": model.DeployBuilding, "Tag": tag}); err != nil {
		return err
	}

	exists, err := imagebuild.TagExists(ctx, registry.ECRDomain, registry.ECRRepo, tag)
	if err != nil && !lifecycleerrors.IsRetriable(err) {
		// a permanent registry error still means "assume cache miss and
		// attempt a real build" rather than failing the deploy outright.
		exists = false
	} else if err != nil {
		return err
	}

	var result imagebuild.Result
	if exists {
		result = imagebuild.Result{Tag: tag, ImageRef: req.ImageRef()}
	} else {
		engine := buildEngineFor(deploy.Deployable)
		builder, ok := s.Builders[engine]
		if !ok {
			return s.failDeploy(ctx, deploy, "no builder registered for engine "+string(engine))
		}
		result, err = builder.Build(ctx, req)
		if err != nil {
			return s.failDeploy(ctx, deploy, err.Error())
		}
	}

	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{
		"Status":      model.DeployBuilt,
		"DockerImage": result.ImageRef,
		"BuildLogs":   lifecycleerrors.Truncate(result.Logs),
	}); err != nil {
		return err
	}

	return s.Queue.EnqueueDeploy(ctx, queue.DeployPayload{DeployID: deploy.UUID}, 0)
}

// buildEngineFor picks the native-vs-external builder per §4.7: a docker
// service whose docker.afterBuildPipelineId is set runs on the external CI
// engine, everything else builds natively in-cluster.
func buildEngineFor(d *model.Deployable) model.BuildEngine {
	if d.Docker != nil && d.Docker.AfterBuildPipelineID != "" {
		return model.BuildEngineExternal
	}
	return model.BuildEngineNative
}

func (s *Service) failDeploy(ctx context.Context, deploy *model.Deploy, reason string) error {
	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{
		"Status":        model.DeployBuildFailed,
		"StatusMessage": lifecycleerrors.Truncate(reason),
	}); err != nil {
		return err
	}
	return s.onDeployTerminal(ctx, deploy.Build, deploy)
}
