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

package imagebuild

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func sampleRequest() Request {
	return Request{
		Build:       &model.Build{UUID: "build-1", SHA: "abc123"},
		Deployable:  &model.Deployable{Name: "web"},
		Deploy:      &model.Deploy{UUID: "deploy-1", BranchName: "feature-x"},
		ECRDomain:   "123456789.dkr.ecr.us-east-1.amazonaws.com",
		ECRRepo:     "web",
		BuildUUID:   "build-1",
		RepoHTMLURL: "https://github.com/acme/web",
	}
}

func TestRequestTagAndImageRef(t *testing.T) {
	req := sampleRequest()

	testutil.Run(t, "tag combines build and deploy uuid", func(t *testutil.T) {
		t.CheckDeepEqual("build-1-deploy-1", req.Tag())
	})

	testutil.Run(t, "image ref combines ecr coordinates and tag", func(t *testutil.T) {
		t.CheckDeepEqual("123456789.dkr.ecr.us-east-1.amazonaws.com/web:build-1-deploy-1", req.ImageRef())
	})
}

func TestRequestLabels(t *testing.T) {
	req := sampleRequest()
	labels := req.Labels(model.BuildEngineNative)

	testutil.Run(t, "carries the §4.7 label set", func(t *testutil.T) {
		t.CheckDeepEqual(map[string]string{
			"lc-service":     "web",
			"lc-deploy-uuid": "deploy-1",
			"lc-build-id":    "build-1",
			"git-sha":        "abc123",
			"git-branch":     "feature-x",
			"builder-engine": "native",
		}, labels)
	})
}

func TestRegistryID(t *testing.T) {
	testutil.Run(t, "first dot-separated segment", func(t *testutil.T) {
		t.CheckDeepEqual("123456789", RegistryID("123456789.dkr.ecr.us-east-1.amazonaws.com"))
	})

	testutil.Run(t, "no dot returns whole string", func(t *testutil.T) {
		t.CheckDeepEqual("localhost", RegistryID("localhost"))
	})
}
