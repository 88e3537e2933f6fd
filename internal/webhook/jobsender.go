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
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	schema "github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// dockerJobSender launches a short-lived job with the webhook's declared
// image/command/args and env (§4.9 step 3, `docker` kind).
type dockerJobSender struct {
	clientset kubernetes.Interface
	namespace string
	pollEvery time.Duration
	timeout   time.Duration
}

func (s *dockerJobSender) send(ctx context.Context, build *model.Build, wh schema.WebhookSpec, env map[string]string) (model.WebhookInvocationState, map[string]string, error) {
	container := corev1.Container{
		Name:    "webhook",
		Image:   wh.Image,
		Command: splitCommand(wh.Command),
		Args:    wh.Args,
		Env:     envVars(env),
	}
	return runJob(ctx, s.clientset, s.namespace, jobName(build, wh), container, s.pollEvery, s.timeout)
}

// commandJobSender launches a job running `/bin/sh -c <script>` with env
// (§4.9 step 3, `command` kind).
type commandJobSender struct {
	clientset kubernetes.Interface
	namespace string
	pollEvery time.Duration
	timeout   time.Duration
}

func (s *commandJobSender) send(ctx context.Context, build *model.Build, wh schema.WebhookSpec, env map[string]string) (model.WebhookInvocationState, map[string]string, error) {
	container := corev1.Container{
		Name:    "webhook",
		Image:   shellImage(wh),
		Command: []string{"/bin/sh", "-c", wh.Script},
		Env:     envVars(env),
	}
	return runJob(ctx, s.clientset, s.namespace, jobName(build, wh), container, s.pollEvery, s.timeout)
}

func shellImage(wh schema.WebhookSpec) string {
	if wh.Image != "" {
		return wh.Image
	}
	return "alpine:latest"
}

func splitCommand(cmd string) []string {
	if cmd == "" {
		return nil
	}
	return strings.Fields(cmd)
}

func envVars(env map[string]string) []corev1.EnvVar {
	out := make([]corev1.EnvVar, 0, len(env))
	for k, v := range env {
		out = append(out, corev1.EnvVar{Name: k, Value: v})
	}
	return out
}

func jobName(build *model.Build, wh schema.WebhookSpec) string {
	return fmt.Sprintf("lc-webhook-%s-%s", strings.ToLower(build.UUID), strings.ToLower(wh.Name))
}

// runJob creates a batch/v1 Job running container, waits for it to
// complete, and returns the dispatch state and the {jobName, success}
// metadata the invocation row records.
func runJob(ctx context.Context, clientset kubernetes.Interface, namespace, name string, container corev1.Container, pollEvery, timeout time.Duration) (model.WebhookInvocationState, map[string]string, error) {
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: batchv1.JobSpec{
			BackoffLimit: int32Ptr(0),
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers:    []corev1.Container{container},
				},
			},
		},
	}

	if _, err := clientset.BatchV1().Jobs(namespace).Create(ctx, job, metav1.CreateOptions{}); err != nil {
		return model.WebhookFailed, map[string]string{"jobName": name, "success": "false"}, err
	}

	success, err := waitForJob(ctx, clientset, namespace, name, pollEvery, timeout)
	metadata := map[string]string{"jobName": name, "success": strconv.FormatBool(success)}
	if err != nil {
		return model.WebhookFailed, metadata, err
	}
	if !success {
		return model.WebhookFailed, metadata, fmt.Errorf("webhook job %s failed", name)
	}
	return model.WebhookCompleted, metadata, nil
}

func waitForJob(ctx context.Context, clientset kubernetes.Interface, namespace, name string, pollEvery, timeout time.Duration) (bool, error) {
	if pollEvery == 0 {
		pollEvery = 5 * time.Second
	}
	if timeout == 0 {
		timeout = 15 * time.Minute
	}

	var succeeded bool
	err := wait.PollUntilContextTimeout(ctx, pollEvery, timeout, true, func(ctx context.Context) (bool, error) {
		job, err := clientset.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return false, err
		}
		if err != nil {
			return false, nil
		}
		if job.Status.Succeeded > 0 {
			succeeded = true
			return true, nil
		}
		if job.Status.Failed > 0 {
			succeeded = false
			return true, nil
		}
		return false, nil
	})
	return succeeded, err
}

func int32Ptr(v int32) *int32 { return &v }
