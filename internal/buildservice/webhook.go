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
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue"
)

// HandleWebhook is the webhook_queue consumer (§4.9): loads the build at
// its current status and runs the dispatcher against it.
func (s *Service) HandleWebhook(ctx context.Context, t *asynq.Task) error {
	var payload queue.WebhookPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return lifecycleerrors.NewPermanent(err)
	}

	build, err := s.Store.FindBuildByUUID(ctx, payload.BuildID, "")
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if isNotFound(err, &nf) {
			return nil
		}
		return err
	}

	return s.Webhooks.Dispatch(ctx, build, build.Status)
}
