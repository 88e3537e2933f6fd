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
	"context"
	"fmt"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// NativeBuilder submits an in-cluster batch/v1 Job: an init container that
// clones the source at the deploy's sha with a short-lived forge token,
// plus a buildkit/kaniko container producing the final image (§4.7.1).
type NativeBuilder struct {
	Clientset kubernetes.Interface
	Namespace string
	Engine    string // "buildkit" or "kaniko"
	PollEvery time.Duration
	Timeout   time.Duration
}

// Build submits the job and follows it to completion.
func (b *NativeBuilder) Build(ctx context.Context, req Request) (Result, error) {
	job := b.jobSpec(req)

	created, err := b.Clientset.BatchV1().Jobs(b.Namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return Result{}, lifecycleerrors.NewTransient(fmt.Errorf("submitting build job: %w", err))
	}

	if err := b.waitForCompletion(ctx, created.Name); err != nil {
		return Result{}, err
	}

	logs, err := b.combinedLogs(ctx, created.Name)
	if err != nil {
		logs = fmt.Sprintf("(failed to fetch logs: %v)", err)
	}

	return Result{
		Tag:      req.Tag(),
		ImageRef: req.ImageRef(),
		Logs:     logs,
	}, nil
}

func (b *NativeBuilder) jobSpec(req Request) *batchv1.Job {
	name := fmt.Sprintf("lc-build-%s", strings.ToLower(req.Deploy.UUID))
	labels := req.Labels(model.BuildEngineNative)

	initContainers := []corev1.Container{{
		Name:  "clone",
		Image: "alpine/git:latest",
		Command: []string{"sh", "-c",
			fmt.Sprintf("git clone %s /workspace && cd /workspace && git checkout %s", req.RepoHTMLURL, req.Build.SHA)},
		Env: []corev1.EnvVar{{Name: "GIT_ASKPASS_TOKEN", Value: req.CloneToken}},
		VolumeMounts: []corev1.VolumeMount{{Name: "workspace", MountPath: "/workspace"}},
	}}

	buildContainer := corev1.Container{
		Name:  b.Engine,
		Image: builderImage(b.Engine),
		Args: []string{
			"--context=/workspace",
			"--dockerfile=" + dockerfilePath(req.Deployable),
			"--destination=" + req.ImageRef(),
		},
		VolumeMounts: []corev1.VolumeMount{{Name: "workspace", MountPath: "/workspace"}},
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: b.Namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: int32Ptr(0),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					RestartPolicy:  corev1.RestartPolicyNever,
					InitContainers: initContainers,
					Containers:     []corev1.Container{buildContainer},
					Volumes:        []corev1.Volume{{Name: "workspace", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}}},
				},
			},
		},
	}
}

func dockerfilePath(d *model.Deployable) string {
	if d.Docker != nil && d.Docker.DockerfilePath != "" {
		return d.Docker.DockerfilePath
	}
	return "Dockerfile"
}

func builderImage(engine string) string {
	if engine == "kaniko" {
		return "gcr.io/kaniko-project/executor:latest"
	}
	return "moby/buildkit:latest"
}

func (b *NativeBuilder) waitForCompletion(ctx context.Context, jobName string) error {
	pollEvery := b.PollEvery
	if pollEvery == 0 {
		pollEvery = 5 * time.Second
	}
	timeout := b.Timeout
	if timeout == 0 {
		timeout = 30 * time.Minute
	}

	return wait.PollUntilContextTimeout(ctx, pollEvery, timeout, true, func(ctx context.Context) (bool, error) {
		job, err := b.Clientset.BatchV1().Jobs(b.Namespace).Get(ctx, jobName, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return false, lifecycleerrors.NewPermanent(fmt.Errorf("build job %s disappeared", jobName))
		}
		if err != nil {
			return false, nil // transient read error, keep polling
		}
		if job.Status.Succeeded > 0 {
			return true, nil
		}
		if job.Status.Failed > 0 {
			return false, lifecycleerrors.NewPermanent(fmt.Errorf("build job %s failed", jobName))
		}
		return false, nil
	})
}

func (b *NativeBuilder) combinedLogs(ctx context.Context, jobName string) (string, error) {
	pods, err := b.Clientset.CoreV1().Pods(b.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + jobName,
	})
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, pod := range pods.Items {
		req := b.Clientset.CoreV1().Pods(b.Namespace).GetLogs(pod.Name, &corev1.PodLogOptions{})
		stream, err := req.Stream(ctx)
		if err != nil {
			continue
		}
		buf := make([]byte, 4096)
		for {
			n, readErr := stream.Read(buf)
			if n > 0 {
				out.Write(buf[:n])
			}
			if readErr != nil {
				break
			}
		}
		stream.Close()
	}
	return out.String(), nil
}

func int32Ptr(v int32) *int32 { return &v }
