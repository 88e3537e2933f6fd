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

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue/lock"
)

const teardownLockTTL = 10 * time.Minute

// HandleTeardown is the deploy-queue teardown consumer (§4.6 transition 7):
// a static build's deploys are never torn down automatically
// (`!build || build.isStatic` — null check first per the Open Question
// decision recorded in DESIGN.md); otherwise it uninstalls the Helm release
// (a missing release counts as success; any other uninstall failure is
// returned), best-effort deletes the forge-side environment record, and
// once every active deploy of the build is TORN_DOWN, marks the Build
// TORN_DOWN.
func (s *Service) HandleTeardown(ctx context.Context, t *asynq.Task) error {
	var payload queue.TeardownPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return lifecycleerrors.NewPermanent(err)
	}

	held, ok, err := lock.Acquire(ctx, s.Redis, lock.DeployDeployKey(payload.DeployID), teardownLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.Log.Infof("teardown for %s already in flight, skipping", payload.DeployID)
		return nil
	}
	defer held.Release(ctx)

	deploy, err := s.Store.FindDeployByUUID(ctx, payload.DeployID, "deployable|build.[pullRequest.repository]")
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if isNotFound(err, &nf) {
			return nil
		}
		return err
	}

	build := deploy.Build
	if build == nil || build.IsStatic {
		return nil
	}

	if err := s.Releaser.Uninstall(ctx, build.Namespace, deploy.UUID); err != nil {
		return err
	}

	if build.PullRequest != nil && build.PullRequest.Repository != nil {
		owner, name := splitFullName(build.PullRequest.Repository.FullName)
		if err := s.Forge.DeleteEnvironment(ctx, owner, name, deploy.UUID); err != nil {
			s.Log.WithError(err).Warnf("deleting forge environment for %s failed, continuing", deploy.UUID)
		}
	}

	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{"Status": model.DeployTornDown}); err != nil {
		return err
	}

	return s.maybeFinishTeardown(ctx, build)
}

// maybeFinishTeardown marks Build TORN_DOWN once every active deploy has
// reached TORN_DOWN, then enqueues the webhook dispatch pass.
func (s *Service) maybeFinishTeardown(ctx context.Context, build *model.Build) error {
	var remaining int64
	if err := s.Store.DB().WithContext(ctx).
		Model(&model.Deploy{}).
		Where("build_id = ? AND active = ? AND status != ?", build.ID, true, model.DeployTornDown).
		Count(&remaining).Error; err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	// Each deploy's teardown runs under its own per-deploy lock rather than
	// a per-build lock, so two sibling teardowns can both observe
	// remaining == 0 close enough in time to race here; the conditional
	// update makes only the one that actually moves the row dispatch.
	changed, err := s.Store.PatchConditional(ctx, build, "status", model.BuildTornDown, map[string]interface{}{"Status": model.BuildTornDown})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.Queue.EnqueueWebhook(ctx, queue.WebhookPayload{BuildID: build.UUID})
}
