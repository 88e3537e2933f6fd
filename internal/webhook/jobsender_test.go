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
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	fakeclientset "k8s.io/client-go/kubernetes/fake"

	schema "github.com/Underdog-Inc/lifecycle-sub002/internal/config/schema/v1_0_0"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestJobNameAndCommandHelpers(t *testing.T) {
	build := &model.Build{UUID: "Build-1"}
	wh := schema.WebhookSpec{Name: "Smoke-Test"}

	testutil.Run(t, "job name lowercases build and webhook name", func(t *testutil.T) {
		t.CheckDeepEqual("lc-webhook-build-1-smoke-test", jobName(build, wh))
	})

	testutil.Run(t, "empty command splits to nil", func(t *testutil.T) {
		t.CheckDeepEqual([]string(nil), splitCommand(""))
	})

	testutil.Run(t, "command splits on whitespace", func(t *testutil.T) {
		t.CheckDeepEqual([]string{"echo", "hi"}, splitCommand("echo hi"))
	})

	testutil.Run(t, "shell image defaults to alpine", func(t *testutil.T) {
		t.CheckDeepEqual("alpine:latest", shellImage(schema.WebhookSpec{}))
	})

	testutil.Run(t, "shell image honors explicit image", func(t *testutil.T) {
		t.CheckDeepEqual("debian:stable", shellImage(schema.WebhookSpec{Image: "debian:stable"}))
	})
}

// markJobSucceeded flips the fake clientset's copy of the named job to
// Succeeded (or to Failed when fail is true) shortly after creation,
// standing in for a real job controller.
func markJobSucceeded(clientset *fakeclientset.Clientset, namespace, name string, fail bool) {
	go func() {
		for i := 0; i < 50; i++ {
			time.Sleep(10 * time.Millisecond)
			job, err := clientset.BatchV1().Jobs(namespace).Get(context.Background(), name, metav1.GetOptions{})
			if err != nil {
				continue
			}
			if fail {
				job.Status.Failed = 1
			} else {
				job.Status.Succeeded = 1
			}
			if _, err := clientset.BatchV1().Jobs(namespace).UpdateStatus(context.Background(), job, metav1.UpdateOptions{}); err == nil {
				return
			}
		}
	}()
}

func TestDockerJobSenderSend(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	sender := &dockerJobSender{clientset: clientset, namespace: "lifecycle-jobs", pollEvery: 5 * time.Millisecond, timeout: time.Second}
	build := &model.Build{UUID: "build-1"}
	wh := schema.WebhookSpec{Name: "notify", Image: "curlimages/curl", Command: "curl https://example.com"}

	markJobSucceeded(clientset, "lifecycle-jobs", jobName(build, wh), false)

	state, metadata, err := sender.send(context.Background(), build, wh, map[string]string{"FOO": "bar"})

	testutil.Run(t, "docker job completes successfully", func(t *testutil.T) {
		t.CheckError(false, err)
		t.CheckDeepEqual(model.WebhookCompleted, state)
		t.CheckDeepEqual("true", metadata["success"])
		t.CheckDeepEqual(jobName(build, wh), metadata["jobName"])
	})
}

func TestCommandJobSenderSendFailure(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	sender := &commandJobSender{clientset: clientset, namespace: "lifecycle-jobs", pollEvery: 5 * time.Millisecond, timeout: time.Second}
	build := &model.Build{UUID: "build-2"}
	wh := schema.WebhookSpec{Name: "migrate", Script: "exit 1"}

	markJobSucceeded(clientset, "lifecycle-jobs", jobName(build, wh), true)

	state, metadata, err := sender.send(context.Background(), build, wh, nil)

	testutil.Run(t, "failed job is reported as failed with metadata", func(t *testutil.T) {
		t.CheckError(true, err)
		t.CheckDeepEqual(model.WebhookFailed, state)
		t.CheckDeepEqual("false", metadata["success"])
	})
}

func TestRunJobCreatesExpectedSpec(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	build := &model.Build{UUID: "build-3"}
	wh := schema.WebhookSpec{Name: "hook", Script: "echo hi"}
	name := jobName(build, wh)

	markJobSucceeded(clientset, "lifecycle-jobs", name, false)

	sender := &commandJobSender{clientset: clientset, namespace: "lifecycle-jobs", pollEvery: 5 * time.Millisecond, timeout: time.Second}
	if _, _, err := sender.send(context.Background(), build, wh, map[string]string{"A": "1"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	job, err := clientset.BatchV1().Jobs("lifecycle-jobs").Get(context.Background(), name, metav1.GetOptions{})
	if err != nil {
		t.Fatalf("get job: %v", err)
	}

	testutil.Run(t, "job runs a single never-restart container", func(t *testutil.T) {
		t.CheckDeepEqual(corev1.RestartPolicyNever, job.Spec.Template.Spec.RestartPolicy)
		t.CheckDeepEqual(1, len(job.Spec.Template.Spec.Containers))
		t.CheckDeepEqual([]string{"/bin/sh", "-c", "echo hi"}, job.Spec.Template.Spec.Containers[0].Command)
	})
}
