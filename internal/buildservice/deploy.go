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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hibiken/asynq"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/helmrelease"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue/lock"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/store"
)

const deployLockTTL = 20 * time.Minute

const waitingStatusPrefix = "waiting:"

// waitingBackoff mirrors the exponential-backoff schedule named in §4.6 for
// the WAITING→DEPLOYING retry: 2s base, factor 2, capped at 60s, 20%
// jitter, via the teacher's own backoff/v4 dependency.
func waitingBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 60 * time.Second
	b.RandomizationFactor = 0.2
	return b
}

func backoffDelay(attempt int) time.Duration {
	b := waitingBackoff()
	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = b.NextBackOff()
	}
	// backoff/v4 applies jitter after capping the interval, so clamp the
	// jittered value to the 60s cap as well.
	if d == backoff.Stop || d > b.MaxInterval {
		return b.MaxInterval
	}
	return d
}

// HandleDeploy is the deploy-queue consumer (§4.6 transition 4): waits on
// deploymentDependsOn siblings, renders Helm values, and releases.
func (s *Service) HandleDeploy(ctx context.Context, t *asynq.Task) error {
	var payload queue.DeployPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return lifecycleerrors.NewPermanent(err)
	}

	held, ok, err := lock.Acquire(ctx, s.Redis, lock.DeployDeployKey(payload.DeployID), deployLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.Log.Infof("deploy for %s already in flight, skipping", payload.DeployID)
		return nil
	}
	defer held.Release(ctx)

	deploy, err := s.Store.FindDeployByUUID(ctx, payload.DeployID, "deployable|build.[pullRequest.repository]")
	if err != nil {
		return err
	}

	ready, err := s.dependenciesReady(ctx, deploy)
	if err != nil {
		return err
	}
	if !ready {
		attempt := waitAttempt(deploy) + 1
		if err := s.Store.Patch(ctx, deploy, map[string]interface{}{
			"Status":        model.DeployWaiting,
			"StatusMessage": fmt.Sprintf("%s%d", waitingStatusPrefix, attempt),
		}); err != nil {
			return err
		}
		return s.Queue.EnqueueDeploy(ctx, payload, backoffDelay(attempt))
	}

	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{"Status": model.DeployDeploying, "StatusMessage": ""}); err != nil {
		return err
	}

	if err := s.release(ctx, deploy); err != nil {
		return s.failDeployRelease(ctx, deploy, err)
	}

	domain, err := s.domainConfig(ctx)
	if err != nil {
		return err
	}

	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{
		"Status":           model.DeployReady,
		"InternalHostname": deploy.UUID,
		"PublicURL":        fmt.Sprintf("%s.%s", deploy.UUID, domain.HTTP),
	}); err != nil {
		return err
	}

	return s.onDeployTerminal(ctx, deploy.Build, deploy)
}

// waitAttempt recovers the prior WAITING retry count from StatusMessage,
// the only per-deploy scratch field the model offers for this purpose.
func waitAttempt(deploy *model.Deploy) int {
	if deploy.Status != model.DeployWaiting || !strings.HasPrefix(deploy.StatusMessage, waitingStatusPrefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(deploy.StatusMessage, waitingStatusPrefix))
	if err != nil {
		return 0
	}
	return n
}

func (s *Service) dependenciesReady(ctx context.Context, deploy *model.Deploy) (bool, error) {
	deps := deploy.Deployable.DeploymentDependsOn
	if len(deps) == 0 {
		return true, nil
	}
	var siblings []model.Deploy
	if err := s.Store.DB().WithContext(ctx).
		Joins("JOIN deployables ON deployables.id = deploys.deployable_id").
		Where("deploys.build_id = ? AND deployables.name IN ?", deploy.BuildID, deps).
		Find(&siblings).Error; err != nil {
		return false, err
	}
	if len(siblings) < len(deps) {
		return false, nil
	}
	for _, sib := range siblings {
		if sib.Status != model.DeployReady {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) release(ctx context.Context, deploy *model.Deploy) error {
	domain, err := s.domainConfig(ctx)
	if err != nil {
		return err
	}
	ipAllowList, err := s.ipAllowList(ctx)
	if err != nil {
		return err
	}
	if deploy.Deployable.Helm != nil && len(deploy.Deployable.Helm.OverrideDefaultIPWhitelist) > 0 {
		ipAllowList = deploy.Deployable.Helm.OverrideDefaultIPWhitelist
	}

	chartName := ""
	if deploy.Deployable.Helm != nil {
		chartName = deploy.Deployable.Helm.Chart.Name
	}
	defaults, err := s.chartDefaults(ctx, chartName)
	if err != nil {
		return err
	}

	renderedValues, err := s.renderHelmValues(deploy)
	if err != nil {
		return err
	}

	var staticOpts *helmrelease.StaticJobOptions
	if deploy.Build.IsStatic {
		opts := helmrelease.DefaultStaticJobOptions
		staticOpts = &opts
	}

	values := helmrelease.BuildValues(
		defaults,
		deploy.Deployable,
		deploy,
		deploy.Build,
		renderedValues,
		toHelmDomainDefaults(domain),
		ipAllowList,
		staticOpts,
	)

	chartRef := ""
	if deploy.Deployable.Helm != nil {
		chartRef = deploy.Deployable.Helm.Chart.RepoURL
		if chartRef == "" {
			chartRef = deploy.Deployable.Helm.Chart.Name
		}
	}

	return s.Releaser.Release(ctx, helmrelease.Release{
		Build:      deploy.Build,
		Deployable: deploy.Deployable,
		Deploy:     deploy,
		ChartRef:   chartRef,
		Namespace:  deploy.Build.Namespace,
		Values:     values,
	})
}

// renderHelmValues re-renders the deployable's raw chart values through §4.4
// so any `{{service_publicUrl}}`-style reference resolves before reaching
// Helm; BuildValues merges these over the raw values by key, so a rendered
// entry always wins.
func (s *Service) renderHelmValues(deploy *model.Deploy) ([]string, error) {
	if deploy.Deployable.Helm == nil {
		return nil, nil
	}
	out := make([]string, 0, len(deploy.Deployable.Helm.Chart.Values))
	for _, v := range deploy.Deployable.Helm.Chart.Values {
		rendered, err := s.Renderer.Render(v, nil, true, deploy.Build.Namespace)
		if err != nil {
			return nil, lifecycleerrors.NewConfigError("rendering helm value: " + err.Error())
		}
		out = append(out, rendered)
	}
	return out, nil
}

func (s *Service) failDeployRelease(ctx context.Context, deploy *model.Deploy, cause error) error {
	if err := s.Store.Patch(ctx, deploy, map[string]interface{}{
		"Status":        model.DeployDeployFail,
		"StatusMessage": lifecycleerrors.Truncate(cause.Error()),
	}); err != nil {
		return err
	}
	return s.onDeployTerminal(ctx, deploy.Build, deploy)
}

// onDeployTerminal is the aggregator hook (§4.6 transition 5): inside one
// transaction, re-reads every active sibling deploy and rolls the result
// up into Build.status: ERROR as soon as any sibling has failed, even while
// others are still in flight; DEPLOYED once all are READY; otherwise no
// change. It then enqueues the webhook dispatch pass for the new status.
func (s *Service) onDeployTerminal(ctx context.Context, build *model.Build, deploy *model.Deploy) error {
	var newStatus model.BuildStatus
	var shouldDispatch bool

	err := s.Store.Transaction(ctx, func(tx *store.Store) error {
		var siblings []model.Deploy
		if err := tx.DB().WithContext(ctx).
			Preload("Deployable").
			Where("build_id = ? AND active = ?", build.ID, true).
			Find(&siblings).Error; err != nil {
			return err
		}

		allReady := true
		var failed *model.Deploy
		for i := range siblings {
			sib := siblings[i]
			switch sib.Status {
			case model.DeployReady:
			case model.DeployBuildFailed, model.DeployDeployFail, model.DeployError:
				allReady = false
				if failed == nil {
					failed = &sib
				}
			default:
				allReady = false
			}
		}

		switch {
		case failed != nil:
			newStatus = model.BuildError
		case allReady:
			newStatus = model.BuildDeployed
		default:
			return nil
		}

		message := ""
		if failed != nil {
			message = failed.Deployable.Name + ": " + failed.StatusMessage
		}
		changed, err := tx.PatchConditional(ctx, build, "status", newStatus, map[string]interface{}{
			"Status":        newStatus,
			"StatusMessage": lifecycleerrors.Truncate(message),
		})
		if err != nil {
			return err
		}
		// A sibling racing us, or a prior call in this same rollup, may have
		// already landed this Build on newStatus; only the call that
		// actually moves the row dispatches webhooks (§8 "exactly one
		// WebhookInvocation row per runUUID").
		shouldDispatch = changed
		return nil
	})
	if err != nil {
		return err
	}
	if !shouldDispatch {
		return nil
	}
	return s.Queue.EnqueueWebhook(ctx, queue.WebhookPayload{BuildID: build.UUID})
}
