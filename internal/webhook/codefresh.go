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

package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	schema "github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// codefreshSender triggers an external pipeline and records one completed
// invocation carrying the pipeline run's URL (§4.9 step 3).
type codefreshSender struct {
	httpClient *http.Client
	baseURL    string // defaults to https://g.codefresh.io/api
}

func (s *codefreshSender) send(ctx context.Context, build *model.Build, wh schema.WebhookSpec, env map[string]string) (model.WebhookInvocationState, map[string]string, error) {
	base := s.baseURL
	if base == "" {
		base = "https://g.codefresh.io/api"
	}

	payload, err := json.Marshal(map[string]interface{}{
		"variables": env,
	})
	if err != nil {
		return model.WebhookFailed, nil, err
	}

	url := fmt.Sprintf("%s/pipelines/run/%s", base, wh.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.WebhookFailed, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.WebhookFailed, nil, err
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.WebhookFailed, nil, err
	}
	if resp.StatusCode >= 300 {
		return model.WebhookFailed, nil, fmt.Errorf("codefresh trigger returned %d", resp.StatusCode)
	}

	ciURL := fmt.Sprintf("https://g.codefresh.io/build/%s", result.ID)
	return model.WebhookCompleted, map[string]string{"link": ciURL}, nil
}
