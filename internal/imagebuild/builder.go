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

// Package imagebuild implements the two image-builder variants of §4.7
// behind one contract, plus the registry tag-existence probe.
package imagebuild

import (
	"context"
	"fmt"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// Result is the outcome of a successful build (§4.7's `{tag, imageRef}`).
type Result struct {
	Tag      string
	ImageRef string
	Logs     string
}

// Request bundles everything a builder needs: the deploy/deployable/build
// triple, the ECR coordinates, and a short-lived forge token for the
// source clone.
type Request struct {
	Build        *model.Build
	Deployable   *model.Deployable
	Deploy       *model.Deploy
	ECRDomain    string
	ECRRepo      string
	CloneToken   string
	RepoHTMLURL  string
	BuildUUID    string
}

// Builder is the contract both the native and external-CI implementations
// satisfy.
type Builder interface {
	Build(ctx context.Context, req Request) (Result, error)
}

// Tag derives the image tag for a request: <buildUUID>-<deployUUID>,
// the value both builder variants and the tag-existence probe agree on.
func (r Request) Tag() string {
	return fmt.Sprintf("%s-%s", r.BuildUUID, r.Deploy.UUID)
}

// ImageRef derives the full pushed image reference.
func (r Request) ImageRef() string {
	return fmt.Sprintf("%s/%s:%s", r.ECRDomain, r.ECRRepo, r.Tag())
}

// Labels returns the label set §4.7 requires every native build job to
// carry.
func (r Request) Labels(engine model.BuildEngine) map[string]string {
	return map[string]string{
		"lc-service":      r.Deployable.Name,
		"lc-deploy-uuid":  r.Deploy.UUID,
		"lc-build-id":     r.BuildUUID,
		"git-sha":         r.Build.SHA,
		"git-branch":      r.Deploy.BranchName,
		"builder-engine":  string(engine),
	}
}
