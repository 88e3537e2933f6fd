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

package helmrelease

import (
	"strings"
)

// upgradeArgs builds the `helm upgrade --install` argument list for a
// release: the release name, chart reference, namespace, and one --set per
// resolved value.
func upgradeArgs(releaseName, chartRef, namespace, valuesFile string, values ValueSet) []string {
	args := []string{
		"upgrade", releaseName, chartRef,
		"--install",
		"--namespace", namespace,
		"--create-namespace",
	}
	if valuesFile != "" {
		args = append(args, "--values", valuesFile)
	}
	for _, v := range values {
		args = append(args, "--set", v)
	}
	return args
}

// listPendingArgs builds the `helm list --pending` argument list used by
// the redeploy pre-step to find stuck releases matching uuid.
func listPendingArgs(namespace, uuid string) []string {
	return []string{
		"list", "--pending",
		"--namespace", namespace,
		"--filter", "^" + uuid + "$",
		"--output", "json",
	}
}

// uninstallArgs builds the `helm uninstall` argument list for a best-effort
// cleanup of a pending release.
func uninstallArgs(namespace, releaseName string) []string {
	return []string{"uninstall", releaseName, "--namespace", namespace}
}

// releaseName is the Helm release name for a deploy: the deploy uuid,
// lower-cased (§4.8).
func releaseName(deployUUID string) string {
	return strings.ToLower(deployUUID)
}
