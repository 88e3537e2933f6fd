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
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/store"
)

// writeJSON marshals v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the lifecycleerrors taxonomy (§7) onto an HTTP status,
// per §7's "REST returns the first failure verbatim" propagation rule.
func (srv *server) writeError(w http.ResponseWriter, err error) {
	var nf *lifecycleerrors.NotFoundError
	var conflict *lifecycleerrors.ConflictError
	var cfgErr *lifecycleerrors.ConfigError
	var cycleErr *lifecycleerrors.DependencyCycleError

	status := http.StatusInternalServerError
	switch {
	case isNotFoundErr(err, &nf):
		status = http.StatusNotFound
	case isConflictErr(err, &conflict):
		status = http.StatusConflict
	case isConfigErr(err, &cfgErr), isCycleErr(err, &cycleErr):
		status = http.StatusUnprocessableEntity
	}
	srv.log.WithError(err).Warn("request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isNotFoundErr(err error, target **lifecycleerrors.NotFoundError) bool {
	v, ok := err.(*lifecycleerrors.NotFoundError)
	if ok {
		*target = v
	}
	return ok
}

func isConflictErr(err error, target **lifecycleerrors.ConflictError) bool {
	v, ok := err.(*lifecycleerrors.ConflictError)
	if ok {
		*target = v
	}
	return ok
}

func isConfigErr(err error, target **lifecycleerrors.ConfigError) bool {
	v, ok := err.(*lifecycleerrors.ConfigError)
	if ok {
		*target = v
	}
	return ok
}

func isCycleErr(err error, target **lifecycleerrors.DependencyCycleError) bool {
	v, ok := err.(*lifecycleerrors.DependencyCycleError)
	if ok {
		*target = v
	}
	return ok
}

// listBuilds is GET /api/v1/builds (§6): filtered, paginated, sorted.
func (srv *server) listBuilds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := intParam(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := intParam(q.Get("limit"), 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	sortField := q.Get("sortField")
	switch sortField {
	case "createdAt", "updatedAt", "status":
	default:
		sortField = "createdAt"
	}
	sortDir := store.Desc
	if q.Get("sortDir") == "asc" {
		sortDir = store.Asc
	}

	query := store.NewQuery[model.Build](srv.store).
		OrderBy(sortField, sortDir).
		Offset((page - 1) * limit).
		Limit(limit)
	if status := q.Get("status"); status != "" {
		query = query.StatusIn(status)
	}
	if term := q.Get("q"); term != "" {
		query = query.LikeAny(term, "uuid", "sha")
	}

	builds, err := query.Find(r.Context())
	if err != nil {
		srv.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"builds": builds, "page": page, "limit": limit})
}

// getBuild is GET /api/v1/builds/{uuid}.
func (srv *server) getBuild(w http.ResponseWriter, r *http.Request) {
	build, err := srv.store.FindBuildByUUID(r.Context(), chi.URLParam(r, "uuid"), "pullRequest.[repository]")
	if err != nil {
		srv.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, build)
}

// getGraph is GET /api/v1/builds/{uuid}/graph.
func (srv *server) getGraph(w http.ResponseWriter, r *http.Request) {
	dot, err := srv.svc.Graph(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		srv.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"graph": dot})
}

// getServices is GET /api/v1/builds/{uuid}/services.
func (srv *server) getServices(w http.ResponseWriter, r *http.Request) {
	rows, err := srv.store.RawDeploySummary(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		srv.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"services": rows})
}

// postDeploy is POST /api/v1/builds/{uuid}/deploy.
func (srv *server) postDeploy(w http.ResponseWriter, r *http.Request) {
	if err := srv.svc.EnqueueRedeploy(r.Context(), chi.URLParam(r, "uuid")); err != nil {
		srv.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// patchTorndown is PATCH /api/v1/builds/{uuid}/torndown.
func (srv *server) patchTorndown(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	build, err := srv.store.FindBuildByUUID(r.Context(), uuid, "")
	if err != nil {
		srv.writeError(w, err)
		return
	}
	if build.IsStatic {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "build is static"})
		return
	}
	if err := srv.svc.EnqueueTeardown(r.Context(), uuid); err != nil {
		srv.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// postWebhooks is POST /api/v1/builds/{uuid}/webhooks.
func (srv *server) postWebhooks(w http.ResponseWriter, r *http.Request) {
	invoked, err := srv.svc.ForceWebhooks(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		srv.writeError(w, err)
		return
	}
	if !invoked {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// schemaValidateRequest is the §6 POST /schema/validate body.
type schemaValidateRequest struct {
	Source  string `json:"source"`
	Content string `json:"content"`
	Repo    string `json:"repo"`
	Branch  string `json:"branch"`
}

// postSchemaValidate is POST /api/v1/schema/validate.
func (srv *server) postSchemaValidate(w http.ResponseWriter, r *http.Request) {
	var req schemaValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var yamlBytes []byte
	switch req.Source {
	case "content":
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"valid": false, "error": []string{"content is not valid base64"}})
			return
		}
		yamlBytes = decoded
	case "path":
		owner, name := splitFullName(req.Repo)
		fetched, err := srv.svc.FetchYAMLForValidation(r.Context(), owner, name, req.Branch)
		if err != nil {
			srv.writeError(w, err)
			return
		}
		yamlBytes = fetched
	default:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"valid": false, "error": []string{"source must be 'content' or 'path'"}})
		return
	}

	valid, errs := srv.svc.ValidateYAML(r.Context(), yamlBytes)
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": valid, "error": errs})
}

// getConfigCache is GET /api/v1/config/cache.
func (srv *server) getConfigCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.configCache.snapshot())
}

// putConfigCache is PUT /api/v1/config/cache.
func (srv *server) putConfigCache(w http.ResponseWriter, r *http.Request) {
	if err := srv.configCache.refresh(r.Context(), srv.store); err != nil {
		srv.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, srv.configCache.snapshot())
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// splitFullName mirrors buildservice's own owner/repo split for the one
// caller here (schema/validate's `path` form) that needs it outside that
// package.
func splitFullName(fullName string) (owner, repo string) {
	for i := range fullName {
		if fullName[i] == '/' {
			return fullName[:i], fullName[i+1:]
		}
	}
	return fullName, ""
}
