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
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/config"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestConvertHelmNil(t *testing.T) {
	if convertHelm(nil) != nil {
		t.Fatal("expected nil HelmSpec to convert to nil")
	}
}

func TestConvertHelm(t *testing.T) {
	in := &v1_0_0.HelmSpec{
		Chart: v1_0_0.HelmChart{
			Name:    "api",
			RepoURL: "https://charts.example.com",
			Version: "1.2.3",
			Values:  []string{"replicaCount: 2"},
		},
		Type:                       "upgrade",
		OverrideDefaultIPWhitelist: []string{"10.0.0.0/8"},
	}
	out := convertHelm(in)
	testutil.Run(t, "fields carry over", func(t *testutil.T) {
		t.CheckDeepEqual("api", out.Chart.Name)
		t.CheckDeepEqual("https://charts.example.com", out.Chart.RepoURL)
		t.CheckDeepEqual("1.2.3", out.Chart.Version)
		t.CheckDeepEqual([]string{"replicaCount: 2"}, out.Chart.Values)
		t.CheckDeepEqual("upgrade", out.Type)
		t.CheckDeepEqual([]string{"10.0.0.0/8"}, out.OverrideDefaultIPWhitelist)
	})
}

func TestConvertDockerNil(t *testing.T) {
	if convertDocker(nil) != nil {
		t.Fatal("expected nil DockerSpec to convert to nil")
	}
}

func TestConvertDeploymentNil(t *testing.T) {
	if convertDeployment(nil) != nil {
		t.Fatal("expected nil DeploymentSpec to convert to nil")
	}
}

func TestServiceToDeployable(t *testing.T) {
	build := &model.Build{ID: 7, UUID: "acme-widget-pr-1"}
	svc := config.ResolvedService{
		Type: "docker",
		Service: v1_0_0.ServiceSpec{
			Name:                "api",
			CapacityType:        "spot",
			Env:                 map[string]string{"FOO": "bar"},
			DeploymentDependsOn: []string{"db"},
			Docker:              &v1_0_0.DockerSpec{AfterBuildPipelineID: "pipe-1"},
		},
	}

	out := serviceToDeployable(build, svc)

	testutil.Run(t, "identity and scalar fields", func(t *testutil.T) {
		t.CheckDeepEqual(build.ID, out.BuildID)
		t.CheckDeepEqual(build.UUID, out.BuildUUID)
		t.CheckDeepEqual("api", out.Name)
		t.CheckDeepEqual(model.DeployType("docker"), out.Type)
		t.CheckDeepEqual(model.CapacityType("spot"), out.CapacityType)
	})
	testutil.Run(t, "map and slice fields", func(t *testutil.T) {
		t.CheckDeepEqual(model.MapStringString{"FOO": "bar"}, out.Env)
		t.CheckDeepEqual(model.StringSlice{"db"}, out.DeploymentDependsOn)
	})
	testutil.Run(t, "nested docker spec", func(t *testutil.T) {
		if out.Docker == nil {
			t.Fatal("expected Docker to be converted, got nil")
		}
		t.CheckDeepEqual("pipe-1", out.Docker.AfterBuildPipelineID)
	})
}

func TestDeployableFieldsCoversEveryMutableColumn(t *testing.T) {
	d := model.Deployable{
		Type:                model.DeployTypeHelm,
		Env:                 model.MapStringString{"A": "1"},
		InitEnv:             model.MapStringString{"B": "2"},
		Ports:               model.IntSlice{8080},
		Public:              true,
		GRPC:                false,
		CapacityType:        model.CapacityType("spot"),
		KedaScaleToZero:     true,
		DeploymentDependsOn: model.StringSlice{"db"},
	}
	fields := deployableFields(d)
	for _, key := range []string{"Type", "Env", "InitEnv", "Ports", "Public", "GRPC", "CapacityType", "Helm", "Docker", "Deployment", "KedaScaleToZero", "DeploymentDependsOn"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("expected deployableFields to include key %q", key)
		}
	}
}
