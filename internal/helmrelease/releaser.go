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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// Release is everything the releaser needs to know about a single deploy
// to run `helm upgrade --install` for it.
type Release struct {
	Build      *model.Build
	Deployable *model.Deployable
	Deploy     *model.Deploy
	ChartRef   string
	Namespace  string
	Values     ValueSet
}

// Releaser drives a Helm release through the §4.8 flow: a best-effort
// pending-release cleanup, the upgrade/install invocation, and a
// readiness wait.
type Releaser struct {
	Clientset  kubernetes.Interface
	PollEvery  time.Duration
	Timeout    time.Duration
	Log        *logrus.Entry
}

type pendingRelease struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Release runs the full flow for rel, returning once the deployment is
// observed ready or the timeout elapses.
func (r *Releaser) Release(ctx context.Context, rel Release) error {
	name := releaseName(rel.Deploy.UUID)

	if err := r.cleanPending(ctx, rel.Namespace, rel.Deploy.UUID); err != nil {
		r.Log.WithError(err).Warn("pending release cleanup failed, continuing")
	}

	args := upgradeArgs(name, rel.ChartRef, rel.Namespace, "", rel.Values)
	if _, err := runArgs(ctx, args...); err != nil {
		return lifecycleerrors.NewPermanent(fmt.Errorf("helm upgrade --install failed: %w", err))
	}

	return r.waitReady(ctx, rel.Namespace, name)
}

// cleanPending best-effort-uninstalls any Helm release in a "pending" state
// matching uuid before the real release (§4.8 redeploy pre-step).
func (r *Releaser) cleanPending(ctx context.Context, namespace, uuid string) error {
	out, err := runArgs(ctx, listPendingArgs(namespace, uuid)...)
	if err != nil {
		return err
	}

	var pending []pendingRelease
	if err := json.Unmarshal(out, &pending); err != nil {
		return err
	}

	for _, p := range pending {
		if _, err := runArgs(ctx, uninstallArgs(namespace, p.Name)...); err != nil {
			r.Log.WithError(err).Warnf("best-effort uninstall of pending release %s failed", p.Name)
		}
	}
	return nil
}

// Uninstall removes the release for deployUUID, tolerating "release: not
// found" so teardown stays idempotent across retries (§4.6 transition 7).
func (r *Releaser) Uninstall(ctx context.Context, namespace, deployUUID string) error {
	_, err := runArgs(ctx, uninstallArgs(namespace, releaseName(deployUUID))...)
	if err != nil && !strings.Contains(err.Error(), "not found") {
		return lifecycleerrors.NewTransient(err)
	}
	return nil
}

func (r *Releaser) waitReady(ctx context.Context, namespace, name string) error {
	pollEvery := r.PollEvery
	if pollEvery == 0 {
		pollEvery = 5 * time.Second
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}

	return wait.PollUntilContextTimeout(ctx, pollEvery, timeout, true, func(ctx context.Context) (bool, error) {
		deployments, err := r.Clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{
			LabelSelector: "app.kubernetes.io/instance=" + name,
		})
		if err != nil {
			return false, nil
		}
		if len(deployments.Items) == 0 {
			return false, nil
		}
		for _, d := range deployments.Items {
			if d.Status.ReadyReplicas < *d.Spec.Replicas {
				return false, nil
			}
		}
		return true, nil
	})
}

