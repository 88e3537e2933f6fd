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

package queue

import "encoding/json"

// Task type names, independent of the jobVersion-suffixed queue they run on.
const (
	TaskResolveAndDeployBuild = "resolve_and_deploy_build"
	TaskBuildImage            = "build_image"
	TaskDeploy                = "deploy"
	TaskTeardown              = "teardown"
	TaskWebhook               = "webhook"
)

// ResolveAndDeployBuildPayload is the resolveAndDeployBuildQueue job body
// (§4.5): the build to resolve and the runUUID it was enqueued under, so a
// superseded worker can detect staleness (§4.6 step on concurrent events).
type ResolveAndDeployBuildPayload struct {
	BuildID string `json:"buildId"`
	RunUUID string `json:"runUUID"`
}

// BuildImagePayload is the buildImage queue job body.
type BuildImagePayload struct {
	DeployID string `json:"deployId"`
}

// DeployPayload is the deploy queue job body.
type DeployPayload struct {
	DeployID string `json:"deployId"`
}

// TeardownPayload is a single deploy's teardown job body. Teardown has no
// dedicated queue of its own (§4.5 names four); it rides the deploy queue
// and its `deploy:<id>:deploy` single-flight lock, since tearing down and
// deploying a given deploy can never usefully run concurrently.
type TeardownPayload struct {
	DeployID string `json:"deployId"`
}

// WebhookPayload is the webhook_queue job body.
type WebhookPayload struct {
	BuildID string `json:"buildId"`
}

func marshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// payloads are plain structs of strings; marshaling cannot fail.
		panic(err)
	}
	return b
}
