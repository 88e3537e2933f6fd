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

package forge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/go-github/github"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// yamlFileName matches the single lifecycle spec file the tree is
// searched for (§4.2 derived operation getYamlFileContent).
var yamlFileName = regexp.MustCompile(`(?i)^(\.?lifecycle\.ya?ml)$`)

// GetPullRequest fetches PR metadata for owner/repo#number.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	resp, err := c.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	var pr github.PullRequest
	if err := json.Unmarshal(resp.Data, &pr); err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}
	return &pr, nil
}

// GetRefForBranch resolves a branch name to its current ref/sha.
func (c *Client) GetRefForBranch(ctx context.Context, owner, repo, branch string) (*github.Reference, error) {
	path := fmt.Sprintf("/repos/%s/%s/git/ref/heads/%s", owner, repo, branch)
	resp, err := c.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	var ref github.Reference
	if err := json.Unmarshal(resp.Data, &ref); err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}
	return &ref, nil
}

// GetYamlFileContent reads the tree at ref and locates the first entry
// whose path matches yamlFileName, returning its base64-decoded content.
// Returns lifecycleerrors.NotFoundError if no matching file exists.
func (c *Client) GetYamlFileContent(ctx context.Context, owner, repo, ref string) ([]byte, error) {
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s?recursive=1", owner, repo, ref)
	resp, err := c.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return nil, err
	}
	var tree github.Tree
	if err := json.Unmarshal(resp.Data, &tree); err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}

	var matchPath string
	for _, entry := range tree.Entries {
		if entry.Path != nil && yamlFileName.MatchString(*entry.Path) {
			matchPath = *entry.Path
			break
		}
	}
	if matchPath == "" {
		return nil, lifecycleerrors.NewNotFound("lifecycle yaml", ref)
	}

	contentPath := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", owner, repo, matchPath, ref)
	contentResp, err := c.Request(ctx, "GET", contentPath, nil, nil)
	if err != nil {
		return nil, err
	}
	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(contentResp.Data, &file); err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}
	decoded, err := base64.StdEncoding.DecodeString(file.Content)
	if err != nil {
		return nil, lifecycleerrors.NewTransient(err)
	}
	return decoded, nil
}

// GetIssueComment fetches the current body of an existing PR comment,
// used to recover the lifecycle command comment's selection directives
// (§4.3 step 5) ahead of a resolve.
func (c *Client) GetIssueComment(ctx context.Context, owner, repo, commentID string) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues/comments/%s", owner, repo, commentID)
	resp, err := c.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return "", err
	}
	var comment struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(resp.Data, &comment); err != nil {
		return "", lifecycleerrors.NewTransient(err)
	}
	return comment.Body, nil
}

// CreateOrUpdatePullRequestComment posts body as a new comment if
// commentID is empty, otherwise edits the existing comment, returning the
// (possibly new) comment id.
func (c *Client) CreateOrUpdatePullRequestComment(ctx context.Context, owner, repo string, number int, commentID, body string) (string, error) {
	if commentID == "" {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
		resp, err := c.Request(ctx, "POST", path, map[string]string{"body": body}, nil)
		if err != nil {
			return "", err
		}
		var created struct {
			ID json.Number `json:"id"`
		}
		if err := json.Unmarshal(resp.Data, &created); err != nil {
			return "", lifecycleerrors.NewTransient(err)
		}
		return created.ID.String(), nil
	}

	path := fmt.Sprintf("/repos/%s/%s/issues/comments/%s", owner, repo, commentID)
	if _, err := c.Request(ctx, "PATCH", path, map[string]string{"body": body}, nil); err != nil {
		return "", err
	}
	return commentID, nil
}

// UpdateLabels applies newLabels to the PR. Per Open Question decision 2
// (DESIGN.md), this is additive: it reads the PR's existing labels and PUTs
// the union.
func (c *Client) UpdateLabels(ctx context.Context, owner, repo string, number int, newLabels []string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/labels", owner, repo, number)
	resp, err := c.Request(ctx, "GET", path, nil, nil)
	if err != nil {
		return err
	}
	var existing []github.Label
	if err := json.Unmarshal(resp.Data, &existing); err != nil {
		return lifecycleerrors.NewTransient(err)
	}

	union := map[string]bool{}
	for _, l := range existing {
		if l.Name != nil {
			union[*l.Name] = true
		}
	}
	for _, l := range newLabels {
		union[l] = true
	}
	merged := make([]string, 0, len(union))
	for l := range union {
		merged = append(merged, l)
	}

	_, err = c.Request(ctx, "PUT", path, map[string][]string{"labels": merged}, nil)
	return err
}

// CreateDeployment creates a forge Deployment object for ref.
func (c *Client) CreateDeployment(ctx context.Context, owner, repo, ref, environment string) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/deployments", owner, repo)
	resp, err := c.Request(ctx, "POST", path, map[string]interface{}{
		"ref":         ref,
		"environment": environment,
		"auto_merge":  false,
	}, nil)
	if err != nil {
		return "", err
	}
	var created struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		return "", lifecycleerrors.NewTransient(err)
	}
	return created.ID.String(), nil
}

// CreateDeploymentStatus posts a status update against an existing
// deployment id.
func (c *Client) CreateDeploymentStatus(ctx context.Context, owner, repo, deploymentID, state, logURL, envURL string) error {
	path := fmt.Sprintf("/repos/%s/%s/deployments/%s/statuses", owner, repo, deploymentID)
	_, err := c.Request(ctx, "POST", path, map[string]string{
		"state":           state,
		"log_url":         logURL,
		"environment_url": envURL,
	}, nil)
	return err
}

// DeleteEnvironment removes the forge-side environment object for name,
// tolerating a NotFound as a no-op (teardown idempotence, §8 scenario 5).
func (c *Client) DeleteEnvironment(ctx context.Context, owner, repo, name string) error {
	path := fmt.Sprintf("/repos/%s/%s/environments/%s", owner, repo, name)
	_, err := c.Request(ctx, "DELETE", path, nil, nil)
	var nf *lifecycleerrors.NotFoundError
	if err != nil {
		if asNotFound(err, &nf) {
			return nil
		}
		return err
	}
	return nil
}

func asNotFound(err error, target **lifecycleerrors.NotFoundError) bool {
	nf, ok := err.(*lifecycleerrors.NotFoundError)
	if ok {
		*target = nf
	}
	return ok
}
