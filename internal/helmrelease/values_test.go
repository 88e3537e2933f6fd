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
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestEnvValuesDoublesUnderscores(t *testing.T) {
	deployable := &model.Deployable{
		Env: model.MapStringString{
			"API_KEY":  "secret",
			"PLAINKEY": "value",
		},
	}

	testutil.Run(t, "single underscore becomes double", func(t *testutil.T) {
		t.CheckDeepEqual([]string{
			"deployment.env.API__KEY=secret",
			"deployment.env.PLAINKEY=value",
		}, envValues(deployable))
	})
}

func TestBuildValuesDerivedFields(t *testing.T) {
	deployable := &model.Deployable{
		Name: "web",
		Helm: &model.HelmSpec{Chart: model.HelmChart{Values: []string{"replicaCount=2"}}},
	}
	deploy := &model.Deploy{UUID: "deploy-1", DockerImage: "registry/web:abc123", Tag: "abc123"}
	build := &model.Build{UUID: "build-1"}

	testutil.Run(t, "includes fullnameOverride and commonLabels", func(t *testutil.T) {
		values := BuildValues(nil, deployable, deploy, build, nil, DomainDefaults{HTTP: "example.com"}, nil, nil)
		found := map[string]bool{}
		for _, v := range values {
			found[v] = true
		}
		t.CheckDeepEqual(true, found["fullnameOverride=deploy-1"])
		t.CheckDeepEqual(true, found["commonLabels.lc__uuid=build-1"])
		t.CheckDeepEqual(true, found["ingress.host=deploy-1.example.com"])
	})

	testutil.Run(t, "overridden by renderedValues", func(t *testutil.T) {
		values := BuildValues(nil, deployable, deploy, build, []string{"replicaCount=5"}, DomainDefaults{HTTP: "example.com"}, nil, nil)
		hasFive, hasTwo := false, false
		for _, v := range values {
			if v == "replicaCount=5" {
				hasFive = true
			}
			if v == "replicaCount=2" {
				hasTwo = true
			}
		}
		t.CheckDeepEqual(true, hasFive)
		t.CheckDeepEqual(false, hasTwo)
	})
}

func TestReleaseNameLowercased(t *testing.T) {
	testutil.Run(t, "lower-cases the deploy uuid", func(t *testutil.T) {
		t.CheckDeepEqual("deploy-abc", releaseName("DEPLOY-ABC"))
	})
}

func TestUpgradeArgs(t *testing.T) {
	testutil.Run(t, "includes install and namespace flags", func(t *testutil.T) {
		args := upgradeArgs("rel1", "chart/mychart", "ns1", "", ValueSet{"a=1"})
		t.CheckDeepEqual([]string{
			"upgrade", "rel1", "chart/mychart",
			"--install",
			"--namespace", "ns1",
			"--create-namespace",
			"--set", "a=1",
		}, args)
	})
}
