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

// Package webhook implements the post-state webhook dispatcher (§4.9):
// one typed sender per webhook kind, each writing exactly one
// WebhookInvocation row per dispatch.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/yaml"

	schema "github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/envrender"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/store"
)

// maxConcurrentWebhookDispatch bounds how many of a build's webhooks
// Dispatch runs at once; one slow codefresh/docker/command sender
// shouldn't hold up the rest.
const maxConcurrentWebhookDispatch = 4

// sender is the typed-dispatch contract every webhook kind implements.
type sender interface {
	send(ctx context.Context, build *model.Build, wh schema.WebhookSpec, env map[string]string) (model.WebhookInvocationState, map[string]string, error)
}

// Dispatcher drives the §4.9 flow for one build status transition.
type Dispatcher struct {
	Store    *store.Store
	Renderer *envrender.TemplateRenderer
	Senders  map[model.WebhookType]sender
	Log      *logrus.Entry
}

// NewDispatcher builds a Dispatcher with the standard three senders wired
// to cs (used by docker/command) and httpClient (used by codefresh).
func NewDispatcher(st *store.Store, renderer *envrender.TemplateRenderer, cs kubernetes.Interface, httpClient *http.Client, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		Store:    st,
		Renderer: renderer,
		Log:      log,
		Senders: map[model.WebhookType]sender{
			model.WebhookTypeCodefresh: &codefreshSender{httpClient: httpClient},
			model.WebhookTypeDocker:    &dockerJobSender{clientset: cs, namespace: "lifecycle-jobs"},
			model.WebhookTypeCommand:   &commandJobSender{clientset: cs, namespace: "lifecycle-jobs"},
		},
	}
}

// Dispatch runs every webhook in build.WebhooksYaml whose state matches
// newStatus.
func (d *Dispatcher) Dispatch(ctx context.Context, build *model.Build, newStatus model.BuildStatus) error {
	var spec struct {
		Webhooks []schema.WebhookSpec `json:"webhooks"`
	}
	if build.WebhooksYaml == "" {
		return nil
	}
	if err := yaml.Unmarshal([]byte(build.WebhooksYaml), &spec); err != nil {
		return fmt.Errorf("parsing build webhooks: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentWebhookDispatch)
	for _, wh := range spec.Webhooks {
		if model.BuildStatus(wh.State) != newStatus {
			continue
		}
		g.Go(func() error {
			d.dispatchOne(ctx, build, wh)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) dispatchOne(ctx context.Context, build *model.Build, wh schema.WebhookSpec) {
	invocation := &model.WebhookInvocation{
		BuildID:    build.ID,
		RunUUID:    build.RunUUID,
		Name:       wh.Name,
		Type:       model.WebhookType(wh.Type),
		State:      model.BuildStatus(wh.State),
		YamlConfig: "",
		Status:     model.WebhookExecuting,
	}
	if err := d.Store.Create(ctx, invocation); err != nil {
		d.Log.WithError(err).Errorf("recording webhook invocation %s failed", wh.Name)
		return
	}

	if reason, ok := validate(wh); !ok {
		d.finish(ctx, invocation, model.WebhookFailed, map[string]string{"reason": reason})
		return
	}

	env, err := d.mergedEnv(build, wh)
	if err != nil {
		d.finish(ctx, invocation, model.WebhookFailed, map[string]string{"reason": err.Error()})
		return
	}

	snd, ok := d.Senders[model.WebhookType(wh.Type)]
	if !ok {
		d.finish(ctx, invocation, model.WebhookFailed, map[string]string{"reason": "unknown webhook type " + wh.Type})
		return
	}

	state, metadata, err := snd.send(ctx, build, wh, env)
	if err != nil {
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["error"] = err.Error()
	}
	d.finish(ctx, invocation, state, metadata)
}

// validate checks per-type mandatory fields (§4.9 step 1). codefresh's
// validator is a documented no-op (DESIGN.md Open Question decision 3):
// the original implementation never actually validated codefresh payloads
// beyond presence of a name, so this module preserves that behavior rather
// than introducing a stricter check that would reject previously-accepted
// configs.
func validate(wh schema.WebhookSpec) (string, bool) {
	switch model.WebhookType(wh.Type) {
	case model.WebhookTypeCodefresh:
		return "", true
	case model.WebhookTypeDocker:
		if wh.Image == "" {
			return "docker webhook missing image", false
		}
		return "", true
	case model.WebhookTypeCommand:
		if wh.Script == "" {
			return "command webhook missing script", false
		}
		return "", true
	default:
		return fmt.Sprintf("unknown webhook type %q", wh.Type), false
	}
}

func (d *Dispatcher) mergedEnv(build *model.Build, wh schema.WebhookSpec) (map[string]string, error) {
	env := map[string]string{}
	for k, v := range wh.Env {
		rendered, err := d.Renderer.Render(v, nil, true, build.Namespace)
		if err != nil {
			return nil, fmt.Errorf("rendering webhook env %s: %w", k, err)
		}
		env[k] = rendered
	}
	for k, v := range build.CommentRuntimeEnv {
		env[k] = v
	}
	return env, nil
}

func (d *Dispatcher) finish(ctx context.Context, invocation *model.WebhookInvocation, state model.WebhookInvocationState, metadata map[string]string) {
	fields := map[string]interface{}{
		"Status":    state,
		"Metadata":  model.MapStringString(metadata),
		"UpdatedAt": time.Now(),
	}
	if err := d.Store.Patch(ctx, invocation, fields); err != nil {
		d.Log.WithError(err).Errorf("patching webhook invocation %s failed", invocation.Name)
	}
}
