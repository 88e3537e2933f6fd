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

// Package config implements the Config Resolver (§4.3): YAML parsing
// against the versioned schema registry, GlobalConfig default merging, PR
// comment selection parsing, and dependency-graph/topological ordering.
// The resolver itself is a pure function of (yaml bytes, defaults, comment
// body) — fetching the YAML and the comment body over the forge API is the
// caller's (C6/C2's) responsibility, keeping this package independently
// testable.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/comment"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/graph"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/validation"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// ResolvedService is one (Deployable, selected?) pair produced by Resolve,
// in final topological order.
type ResolvedService struct {
	Service  v1_0_0.ServiceSpec
	Type     string
	Active   bool
	VanityURL string
}

// Result is the full output of a resolve: ordered services, the webhook
// list, and the DOT-rendered graph (optional, §4.3).
type Result struct {
	Services          []ResolvedService
	Webhooks          []v1_0_0.WebhookSpec
	GraphDOT          string
	CommentRuntimeEnv map[string]string
}

var placeholderPattern = regexp.MustCompile(`\{\{([a-zA-Z0-9_-]+)_(publicUrl|internalHostname)\}\}`)

// Resolve runs §4.3 steps 1-6 against already-fetched inputs.
func Resolve(yamlBytes []byte, defaults map[string]interface{}, commentBody string) (Result, error) {
	if len(strings.TrimSpace(string(yamlBytes))) == 0 {
		return Result{}, lifecycleerrors.NewConfigError("empty YAML config")
	}

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(yamlBytes, &raw); err != nil {
		return Result{}, lifecycleerrors.NewConfigError(fmt.Sprintf("parsing YAML: %v", err))
	}

	version, _ := raw["version"].(string)
	validator, err := schema.Lookup(version)
	if err != nil {
		return Result{}, err
	}

	spec, _, err := validator.Validate(raw)
	if err != nil {
		return Result{}, err
	}
	if err := validation.Validate(spec); err != nil {
		return Result{}, err
	}

	spec = mergeDefaults(spec, defaults)

	parsed := comment.Parse(commentBody)

	g := graph.New()
	for _, svc := range spec.Services {
		g.AddNode(svc.Name)
	}
	for _, svc := range spec.Services {
		for _, dep := range svc.DeploymentDependsOn {
			g.AddEdge(svc.Name, dep, true)
		}
		for _, v := range svc.Env {
			addEnvEdges(g, svc.Name, v)
		}
		for _, v := range svc.InitEnv {
			addEnvEdges(g, svc.Name, v)
		}
	}

	order, err := g.Toposort()
	if err != nil {
		return Result{}, err
	}

	byName := make(map[string]v1_0_0.ServiceSpec, len(spec.Services))
	for _, svc := range spec.Services {
		byName[svc.Name] = svc
	}

	out := make([]ResolvedService, 0, len(order))
	for _, name := range order {
		svc, ok := byName[name]
		if !ok {
			// a dependency-graph node with no backing service declaration
			// comes from an env/initEnv reference to a service this YAML
			// does not declare (dangling deploymentDependsOn edges are
			// already rejected by validation.Validate above); it has
			// nothing to deploy.
			continue
		}
		typ, err := svc.DetectType()
		if err != nil {
			return Result{}, err
		}
		sel, hasSel := parsed.Services[name]
		active := true
		vanity := ""
		if hasSel {
			active = sel.Active
			vanity = sel.VanityURL
		}
		out = append(out, ResolvedService{Service: svc, Type: typ, Active: active, VanityURL: vanity})
	}

	return Result{
		Services:          out,
		Webhooks:          spec.Webhooks,
		GraphDOT:          g.String(),
		CommentRuntimeEnv: parsed.CommentRuntimeEnv,
	}, nil
}

// addEnvEdges scans a single env/initEnv value for `{{name_publicUrl}}` or
// `{{name_internalHostname}}` references and adds the corresponding edge
// as soft (§4.3 step 6): it influences ordering and the DOT output, but
// Graph.Toposort only raises DependencyCycleError for a cycle containing
// a declared deploymentDependsOn edge, so two services referencing each
// other's env (a common bidirectional-discovery pattern) still resolves.
func addEnvEdges(g *graph.Graph, serviceName, value string) {
	for _, m := range placeholderPattern.FindAllStringSubmatch(value, -1) {
		peer := m[1]
		if peer == serviceName {
			continue
		}
		g.AddEdge(serviceName, peer, false)
	}
}

// mergeDefaults applies GlobalConfig defaults (§4.3 step 4): for each helm
// service, the `values` list under defaults["lifecycleDefaults"][<chart
// name>] is merged under the service's helm.chart.values by key, the
// service's entry winning. No other defaults key and no other service
// field is merged, and nested maps are not merged recursively.
func mergeDefaults(spec v1_0_0.Spec, defaults map[string]interface{}) v1_0_0.Spec {
	if len(defaults) == 0 {
		return spec
	}
	chartDefaults, _ := defaults["lifecycleDefaults"].(map[string]interface{})
	if chartDefaults == nil {
		return spec
	}
	for i, svc := range spec.Services {
		if svc.Helm == nil {
			continue
		}
		perChart, _ := chartDefaults[svc.Helm.Chart.Name].(map[string]interface{})
		if perChart == nil {
			continue
		}
		defaultValues, _ := toInterfaceSlice(perChart["values"])
		merged := MergeKeyValueArrays(toStrings(defaultValues), svc.Helm.Chart.Values, "=")
		spec.Services[i].Helm.Chart.Values = merged
	}
	return spec
}

func toInterfaceSlice(v interface{}) ([]interface{}, bool) {
	arr, ok := v.([]interface{})
	return arr, ok
}

func toStrings(arr []interface{}) []string {
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
