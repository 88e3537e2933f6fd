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

package config

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

const yamlAB = `
version: "1.0.0"
services:
  - name: A
    docker:
      dockerfilePath: Dockerfile
  - name: B
    docker:
      dockerfilePath: Dockerfile
    env:
      X: "{{A_internalHostname}}"
`

func TestResolveYamlResolvesGraph(t *testing.T) {
	// Concrete scenario 1 (§8).
	result, err := Resolve([]byte(yamlAB), nil, "")
	testutil.Run(t, "topological order is [A, B]", func(t *testutil.T) {
		t.CheckError(false, err)
		names := make([]string, len(result.Services))
		for i, s := range result.Services {
			names[i] = s.Service.Name
		}
		t.CheckDeepEqual([]string{"A", "B"}, names)
	})
}

func TestResolveEmptyYaml(t *testing.T) {
	_, err := Resolve([]byte(""), nil, "")
	testutil.Run(t, "empty yaml is a ConfigError", func(t *testutil.T) {
		if _, ok := err.(*lifecycleerrors.ConfigError); !ok {
			t.Fatalf("expected *ConfigError, got %T: %v", err, err)
		}
	})
}

func TestResolveUnsupportedVersion(t *testing.T) {
	_, err := Resolve([]byte("version: \"9.9.9\"\nservices: []\n"), nil, "")
	testutil.Run(t, "unsupported version is a ConfigError", func(t *testutil.T) {
		if _, ok := err.(*lifecycleerrors.ConfigError); !ok {
			t.Fatalf("expected *ConfigError, got %T: %v", err, err)
		}
	})
}

func TestResolveCommentSelection(t *testing.T) {
	body := "----EDIT BELOW THIS LINE----\n[ ] B: main\n----EDIT ABOVE THIS LINE----"
	result, err := Resolve([]byte(yamlAB), nil, body)
	testutil.Run(t, "comment deselects B", func(t *testutil.T) {
		t.CheckError(false, err)
		for _, s := range result.Services {
			if s.Service.Name == "B" {
				t.CheckDeepEqual(false, s.Active)
			}
			if s.Service.Name == "A" {
				t.CheckDeepEqual(true, s.Active)
			}
		}
	})
}

const yamlCycle = `
version: "1.0.0"
services:
  - name: A
    docker:
      dockerfilePath: Dockerfile
    deploymentDependsOn: ["B"]
  - name: B
    docker:
      dockerfilePath: Dockerfile
    deploymentDependsOn: ["A"]
`

func TestResolveDependencyCycle(t *testing.T) {
	_, err := Resolve([]byte(yamlCycle), nil, "")
	testutil.Run(t, "cycle surfaces as DependencyCycleError", func(t *testutil.T) {
		if _, ok := err.(*lifecycleerrors.DependencyCycleError); !ok {
			t.Fatalf("expected *DependencyCycleError, got %T: %v", err, err)
		}
	})
}

const yamlEnvOnlyCycle = `
version: "1.0.0"
services:
  - name: A
    docker:
      dockerfilePath: Dockerfile
    env:
      PEER: "{{B_internalHostname}}"
  - name: B
    docker:
      dockerfilePath: Dockerfile
    env:
      PEER: "{{A_internalHostname}}"
`

func TestResolveEnvOnlyCycleResolves(t *testing.T) {
	// Two services referencing each other's env only (no
	// deploymentDependsOn anywhere) is a normal bidirectional-discovery
	// pattern, not a DependencyCycle (§4.3 step 6).
	result, err := Resolve([]byte(yamlEnvOnlyCycle), nil, "")
	testutil.Run(t, "env-only cycle resolves instead of erroring", func(t *testutil.T) {
		t.CheckError(false, err)
		t.CheckDeepEqual(2, len(result.Services))
	})
}
