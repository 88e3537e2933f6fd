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
	"time"

	"github.com/hibiken/asynq"
	"sigs.k8s.io/yaml"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/envrender"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue/lock"
)

const resolveLockTTL = 5 * time.Minute

// HandleResolve is the resolve-queue consumer (§4.6 transition 2).
func (s *Service) HandleResolve(ctx context.Context, t *asynq.Task) error {
	var payload queue.ResolveAndDeployBuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return lifecycleerrors.NewPermanent(err)
	}

	held, ok, err := lock.Acquire(ctx, s.Redis, lock.BuildResolveKey(payload.BuildID), resolveLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		s.Log.Infof("resolve for build %s already in flight, skipping", payload.BuildID)
		return nil
	}
	defer held.Release(ctx)

	build, err := s.Store.FindBuildByUUID(ctx, payload.BuildID, "pullRequest.[repository]|deploys.[deployable]")
	if err != nil {
		return err
	}
	if build.RunUUID != payload.RunUUID {
		// a later PR event superseded this job; the lock holder that still
		// completes first always loses to the most recent runUUID.
		s.Log.Infof("build %s runUUID stale (%s != %s), exiting without side effects", payload.BuildID, build.RunUUID, payload.RunUUID)
		return nil
	}

	owner, repoName := splitFullName(build.PullRequest.Repository.FullName)

	yamlBytes, err := s.Forge.GetYamlFileContent(ctx, owner, repoName, build.SHA)
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if isNotFound(err, &nf) {
			return s.markConfigError(ctx, build, "no lifecycle.yaml found at "+build.SHA)
		}
		return err
	}

	commentBody := ""
	if build.PullRequest.StatusCommentID != "" {
		commentBody, err = s.Forge.GetIssueComment(ctx, owner, repoName, build.PullRequest.StatusCommentID)
		if err != nil {
			return err
		}
	}

	result, err := config.Resolve(yamlBytes, nil, commentBody)
	if err != nil {
		var cfgErr *lifecycleerrors.ConfigError
		var cycleErr *lifecycleerrors.DependencyCycleError
		if isConfigError(err, &cfgErr) || isCycleError(err, &cycleErr) {
			return s.markConfigError(ctx, build, err.Error())
		}
		return err
	}

	webhooksYaml, err := yaml.Marshal(struct {
		Webhooks []v1_0_0.WebhookSpec `json:"webhooks"`
	}{result.Webhooks})
	if err != nil {
		return lifecycleerrors.NewPermanent(err)
	}

	if err := s.Store.Patch(ctx, build, map[string]interface{}{
		"WebhooksYaml":      string(webhooksYaml),
		"CommentRuntimeEnv": model.MapStringString(result.CommentRuntimeEnv),
		"DependencyGraph":   result.GraphDOT,
		"Status":            model.BuildBuilding,
	}); err != nil {
		return err
	}

	deploys, err := s.upsertServices(ctx, build, result.Services)
	if err != nil {
		return err
	}

	if err := s.renderDeployEnv(ctx, build, deploys); err != nil {
		return err
	}

	for _, d := range deploys {
		if err := s.dispatchResolvedDeploy(ctx, build, d); err != nil {
			return err
		}
	}

	return nil
}

// dispatchResolvedDeploy routes a freshly-resolved deploy onto its next
// queue per its deploy type (§4.6 transition 2's final bullet).
func (s *Service) dispatchResolvedDeploy(ctx context.Context, build *model.Build, d *model.Deploy) error {
	if !d.Active {
		return nil
	}

	switch d.Deployable.Type {
	case model.DeployTypeGithub, model.DeployTypeDocker:
		return s.Queue.EnqueueBuildImage(ctx, queue.BuildImagePayload{DeployID: d.UUID})
	case model.DeployTypeExternalHTTP, model.DeployTypeConfiguration:
		if err := s.Store.Patch(ctx, d, map[string]interface{}{"Status": model.DeployReady}); err != nil {
			return err
		}
		return s.onDeployTerminal(ctx, build, d)
	default: // helm, codefresh, auroraRestore, rdsRestore
		return s.Queue.EnqueueDeploy(ctx, queue.DeployPayload{DeployID: d.UUID}, 0)
	}
}

// upsertServices creates or updates one Deployable+Deploy pair per resolved
// service, upserting by (buildId, deployableName) as §4.6 step 2 requires.
func (s *Service) upsertServices(ctx context.Context, build *model.Build, services []config.ResolvedService) ([]*model.Deploy, error) {
	deploys := make([]*model.Deploy, 0, len(services))

	for _, svc := range services {
		deployable, err := s.upsertDeployable(ctx, build, svc)
		if err != nil {
			return nil, err
		}

		deploy, err := s.upsertDeploy(ctx, build, deployable, svc)
		if err != nil {
			return nil, err
		}
		deploy.Deployable = deployable
		deploys = append(deploys, deploy)
	}
	return deploys, nil
}

func (s *Service) upsertDeployable(ctx context.Context, build *model.Build, svc config.ResolvedService) (*model.Deployable, error) {
	var existing model.Deployable
	err := s.Store.DB().WithContext(ctx).
		Where("build_id = ? AND name = ?", build.ID, svc.Service.Name).
		First(&existing).Error

	deployable := serviceToDeployable(build, svc)
	if err == nil {
		deployable.ID = existing.ID
		if perr := s.Store.Patch(ctx, &deployable, deployableFields(deployable)); perr != nil {
			return nil, perr
		}
		return &deployable, nil
	}

	if cerr := s.Store.Create(ctx, &deployable); cerr != nil {
		return nil, cerr
	}
	return &deployable, nil
}

func serviceToDeployable(build *model.Build, svc config.ResolvedService) model.Deployable {
	return model.Deployable{
		BuildID:             build.ID,
		BuildUUID:           build.UUID,
		Name:                svc.Service.Name,
		Type:                model.DeployType(svc.Type),
		Env:                 svc.Service.Env,
		InitEnv:             svc.Service.InitEnv,
		Ports:               svc.Service.Ports,
		Public:              svc.Service.Public,
		GRPC:                svc.Service.GRPC,
		CapacityType:        model.CapacityType(svc.Service.CapacityType),
		Helm:                convertHelm(svc.Service.Helm),
		Docker:              convertDocker(svc.Service.Docker),
		Deployment:          convertDeployment(svc.Service.Deployment),
		KedaScaleToZero:     svc.Service.KedaScaleToZero,
		DeploymentDependsOn: svc.Service.DeploymentDependsOn,
	}
}

func deployableFields(d model.Deployable) map[string]interface{} {
	return map[string]interface{}{
		"Type":                d.Type,
		"Env":                 d.Env,
		"InitEnv":             d.InitEnv,
		"Ports":               d.Ports,
		"Public":              d.Public,
		"GRPC":                d.GRPC,
		"CapacityType":        d.CapacityType,
		"Helm":                d.Helm,
		"Docker":              d.Docker,
		"Deployment":          d.Deployment,
		"KedaScaleToZero":     d.KedaScaleToZero,
		"DeploymentDependsOn": d.DeploymentDependsOn,
	}
}

func convertHelm(h *v1_0_0.HelmSpec) *model.HelmSpec {
	if h == nil {
		return nil
	}
	return &model.HelmSpec{
		Chart: model.HelmChart{
			Name:       h.Chart.Name,
			RepoURL:    h.Chart.RepoURL,
			Version:    h.Chart.Version,
			Values:     h.Chart.Values,
			ValueFiles: h.Chart.ValueFiles,
		},
		Type:                       h.Type,
		Args:                       h.Args,
		Action:                     h.Action,
		DisableIngressHost:         h.DisableIngressHost,
		OverrideDefaultIPWhitelist: h.OverrideDefaultIPWhitelist,
	}
}

func convertDocker(d *v1_0_0.DockerSpec) *model.DockerSpec {
	if d == nil {
		return nil
	}
	return &model.DockerSpec{
		DockerfilePath:           d.DockerfilePath,
		InitDockerfilePath:       d.InitDockerfilePath,
		AfterBuildPipelineID:     d.AfterBuildPipelineID,
		DetachAfterBuildPipeline: d.DetachAfterBuildPipeline,
		ECR:                      d.ECR,
	}
}

func convertDeployment(d *v1_0_0.DeploymentSpec) *model.DeploymentSpec {
	if d == nil {
		return nil
	}
	return &model.DeploymentSpec{
		CPURequest:    d.CPURequest,
		CPULimit:      d.CPULimit,
		MemoryRequest: d.MemoryRequest,
		MemoryLimit:   d.MemoryLimit,
		ReadinessPath: d.ReadinessPath,
		ReadinessPort: d.ReadinessPort,
		NetworkPolicy: d.NetworkPolicy,
	}
}

func (s *Service) upsertDeploy(ctx context.Context, build *model.Build, deployable *model.Deployable, svc config.ResolvedService) (*model.Deploy, error) {
	var existing model.Deploy
	err := s.Store.DB().WithContext(ctx).
		Where("build_id = ? AND deployable_id = ?", build.ID, deployable.ID).
		First(&existing).Error

	if err == nil {
		fields := map[string]interface{}{"Active": svc.Active, "RunUUID": build.RunUUID}
		if serr := s.Store.Patch(ctx, &existing, fields); serr != nil {
			return nil, serr
		}
		return &existing, nil
	}

	deploy := &model.Deploy{
		UUID:         deployUUID(build, svc.Service.Name),
		BuildID:      build.ID,
		DeployableID: deployable.ID,
		Status:       model.DeployQueued,
		Active:       svc.Active,
		RunUUID:      build.RunUUID,
		SHA:          build.SHA,
		YamlConfig:   svc.VanityURL,
	}
	if cerr := s.Store.Create(ctx, deploy); cerr != nil {
		return nil, cerr
	}
	return deploy, nil
}

// renderDeployEnv computes each deploy's rendered env map via §4.4, using
// the full set of sibling deploys just resolved as the peer-reference
// index.
func (s *Service) renderDeployEnv(ctx context.Context, build *model.Build, deploys []*model.Deploy) error {
	// s.Renderer.Defaults is configured once at process start-up from
	// GlobalConfig["domainDefaults"] (see cmd/lifecycle-worker); it is not
	// refreshed per call here, since TemplateRenderer is shared across
	// concurrent handlers and mutating it per-request would race.
	useDefaultUUID := !build.HasFeature("NO_DEFAULT_ENV_RESOLVE")

	avail := map[string]envrender.ServiceEnvFacts{}
	for _, d := range deploys {
		avail[d.Deployable.Name] = envrender.ServiceEnvFacts{
			BranchName:       d.BranchName,
			PublicURL:        d.PublicURL,
			UUID:             d.UUID,
			InternalHostname: d.InternalHostname,
			DockerImage:      d.DockerImage,
			SHA:              d.SHA,
			InternalPort:     fmt.Sprintf("%d", d.Port),
			BuildOutput:      d.BuildOutput,
		}
	}

	for _, d := range deploys {
		rendered := map[string]string{}
		for k, v := range d.Deployable.Env {
			out, err := s.Renderer.Render(v, avail, useDefaultUUID, build.Namespace)
			if err != nil {
				return lifecycleerrors.NewConfigError(fmt.Sprintf("rendering env %s for %s: %v", k, d.Deployable.Name, err))
			}
			rendered[k] = out
		}
		initRendered := map[string]string{}
		for k, v := range d.Deployable.InitEnv {
			out, err := s.Renderer.Render(v, avail, useDefaultUUID, build.Namespace)
			if err != nil {
				return lifecycleerrors.NewConfigError(fmt.Sprintf("rendering initEnv %s for %s: %v", k, d.Deployable.Name, err))
			}
			initRendered[k] = out
		}
		if err := s.Store.Patch(ctx, d, map[string]interface{}{
			"Env":     model.MapStringString(rendered),
			"InitEnv": model.MapStringString(initRendered),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) markConfigError(ctx context.Context, build *model.Build, message string) error {
	return s.Store.Patch(ctx, build, map[string]interface{}{
		"Status":        model.BuildConfigError,
		"StatusMessage": lifecycleerrors.Truncate(message),
	})
}

func isConfigError(err error, target **lifecycleerrors.ConfigError) bool {
	c, ok := err.(*lifecycleerrors.ConfigError)
	if ok {
		*target = c
	}
	return ok
}

func isCycleError(err error, target **lifecycleerrors.DependencyCycleError) bool {
	c, ok := err.(*lifecycleerrors.DependencyCycleError)
	if ok {
		*target = c
	}
	return ok
}
