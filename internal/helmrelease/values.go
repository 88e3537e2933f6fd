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

// Package helmrelease implements the Helm Releaser (§4.8): value-list
// assembly, the `helm upgrade --install` CLI wrapper, and release
// readiness polling.
package helmrelease

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// DomainDefaults mirrors the subset of GlobalConfig consulted when deriving
// values (§4.8 step 4).
type DomainDefaults struct {
	HTTP string
}

// StaticJobOptions carries the static-environment options of §4.6/§4.8 into
// BuildValues: for a static build, NodeSelector and Tolerations become
// derived values. TTLSeconds is not read by BuildValues or any other code.
type StaticJobOptions struct {
	TTLSeconds  int
	NodeSelector map[string]string
	Tolerations []string
}

// DefaultStaticJobOptions is the documented static-build TTL (24h).
var DefaultStaticJobOptions = StaticJobOptions{TTLSeconds: 86400}

// ValueSet is an ordered `key=value` list as handed to `helm --set`.
type ValueSet []string

// BuildValues assembles the four-layer value list of §4.8:
//  1. lifecycleDefaults chart overrides for chartName
//  2. deployable helm.chart.values[]
//  3. template-rendered values (already resolved by the caller via C4)
//  4. derived values (fullnameOverride, commonLabels, image refs, ingress host, ...)
func BuildValues(
	lifecycleDefaults []string,
	deployable *model.Deployable,
	deploy *model.Deploy,
	build *model.Build,
	renderedValues []string,
	domain DomainDefaults,
	ipAllowList []string,
	staticOpts *StaticJobOptions,
) ValueSet {
	merged := lifecycleDefaults
	if deployable.Helm != nil {
		merged = config.MergeKeyValueArrays(merged, deployable.Helm.Chart.Values, "=")
	}
	merged = config.MergeKeyValueArrays(merged, renderedValues, "=")

	derived := derivedValues(deployable, deploy, build, domain, ipAllowList, staticOpts)
	merged = config.MergeKeyValueArrays(merged, derived, "=")

	return ValueSet(merged)
}

func derivedValues(deployable *model.Deployable, deploy *model.Deploy, build *model.Build, domain DomainDefaults, ipAllowList []string, staticOpts *StaticJobOptions) []string {
	values := []string{
		fmt.Sprintf("fullnameOverride=%s", deploy.UUID),
		fmt.Sprintf("commonLabels.name=%s", deploy.UUID),
		fmt.Sprintf("commonLabels.lc__uuid=%s", build.UUID),
		fmt.Sprintf("image.repository=%s", imageRepository(deploy.DockerImage)),
		fmt.Sprintf("image.tag=%s", deploy.Tag),
	}

	if !helmDisablesIngress(deployable) {
		values = append(values, fmt.Sprintf("ingress.host=%s.%s", deploy.UUID, domain.HTTP))
	}

	if len(ipAllowList) > 0 {
		values = append(values, fmt.Sprintf("ingress.ipAllowList=%s", strings.Join(ipAllowList, "\\,")))
	}

	if deployable.GRPC {
		values = append(values, "service.grpc.enabled=true")
	}

	if build.IsStatic && staticOpts != nil {
		for k, v := range staticOpts.NodeSelector {
			values = append(values, fmt.Sprintf("nodeSelector.%s=%s", k, v))
		}
		for i, t := range staticOpts.Tolerations {
			values = append(values, fmt.Sprintf("tolerations[%d]=%s", i, t))
		}
	}

	values = append(values, fmt.Sprintf("autoscaling.enabled=%t", deployable.Deployment != nil && deployable.Deployment.ReadinessPath != ""))

	return append(values, envValues(deployable)...)
}

func helmDisablesIngress(d *model.Deployable) bool {
	return d.Helm != nil && d.Helm.DisableIngressHost
}

func imageRepository(ref string) string {
	idx := strings.LastIndex(ref, ":")
	if idx == -1 {
		return ref
	}
	return ref[:idx]
}

// envValues renders the deployable's env map as
// `deployment.env.<KEY_with_underscores_doubled>=<value>` entries
// (§4.8): a single underscore becomes a double underscore so the
// downstream CLI's dot-to-underscore rewrite round-trips.
func envValues(deployable *model.Deployable) []string {
	keys := make([]string, 0, len(deployable.Env))
	for k := range deployable.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		doubled := strings.ReplaceAll(k, "_", "__")
		out = append(out, fmt.Sprintf("deployment.env.%s=%s", doubled, deployable.Env[k]))
	}
	return out
}
