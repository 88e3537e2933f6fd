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

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/google/go-github/github"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/forge"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// forgeWebhook is the §6 forge webhook HTTP surface: POST
// /api/webhooks/forge. Only `pull_request` events carry lifecycle work;
// every other event type is accepted (204) and dropped, since the forge
// sends many event types to one configured URL and this module only acts
// on pull request lifecycle.
func (srv *server) forgeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("x-hub-signature-256")
	if sig == "" {
		sig = r.Header.Get("x-hub-signature")
	}
	if !forge.VerifyWebhookSignature(body, sig, srv.cfg.GitHubWebhookSecret) {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	if r.Header.Get("x-github-event") != "pull_request" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var evt github.PullRequestEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		http.Error(w, "decoding pull_request event", http.StatusBadRequest)
		return
	}

	repo, pr, err := srv.upsertPullRequestEvent(r.Context(), &evt)
	if err != nil {
		srv.writeError(w, err)
		return
	}

	if err := srv.svc.OnPullRequestEvent(r.Context(), repo, pr, evt.GetAction()); err != nil {
		srv.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// upsertPullRequestEvent finds or creates the Repository and PullRequest
// rows a forge pull_request event refers to, mirroring the
// find-or-create wording of §4.6 transition 1's "create/update Build"
// step one level up the entity graph.
func (srv *server) upsertPullRequestEvent(ctx context.Context, evt *github.PullRequestEvent) (*model.Repository, *model.PullRequest, error) {
	ghRepo := evt.GetRepo()
	repoID := strconv.FormatInt(ghRepo.GetID(), 10)
	db := srv.store.DB().WithContext(ctx)

	var repo model.Repository
	if err := db.Where("repo_id = ?", repoID).First(&repo).Error; err != nil {
		repo = model.Repository{
			RepoID:   repoID,
			FullName: ghRepo.GetFullName(),
			HTMLURL:  ghRepo.GetHTMLURL(),
		}
		if evt.GetInstallation() != nil {
			repo.InstallationID = strconv.FormatInt(evt.GetInstallation().GetID(), 10)
		}
		if err := db.Create(&repo).Error; err != nil {
			if err := db.Where("repo_id = ?", repoID).First(&repo).Error; err != nil {
				return nil, nil, err
			}
		}
	}

	ghPR := evt.GetPullRequest()
	var pr model.PullRequest
	if err := db.Where("repository_id = ? AND pr_number = ?", repo.ID, ghPR.GetNumber()).First(&pr).Error; err != nil {
		pr = model.PullRequest{
			RepositoryID: repo.ID,
			PRNumber:     ghPR.GetNumber(),
			Title:        ghPR.GetTitle(),
			FullName:     repo.FullName,
			BranchName:   ghPR.GetHead().GetRef(),
			LatestCommit: ghPR.GetHead().GetSHA(),
			Status:       model.PRStatusOpen,
		}
		if err := db.Create(&pr).Error; err != nil {
			if err := db.Where("repository_id = ? AND pr_number = ?", repo.ID, ghPR.GetNumber()).First(&pr).Error; err != nil {
				return nil, nil, err
			}
		}
		return &repo, &pr, nil
	}

	pr.LatestCommit = ghPR.GetHead().GetSHA()
	pr.BranchName = ghPR.GetHead().GetRef()
	pr.Title = ghPR.GetTitle()
	if err := db.Save(&pr).Error; err != nil {
		return nil, nil, err
	}
	return &repo, &pr, nil
}
