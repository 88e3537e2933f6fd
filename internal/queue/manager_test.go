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

import (
	"testing"
	"time"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestNewNames(t *testing.T) {
	testutil.Run(t, "suffixed by job version", func(t *testutil.T) {
		names := NewNames("v3")
		t.CheckDeepEqual(Names{
			ResolveAndDeployBuild: "resolveAndDeployBuildQueue-v3",
			BuildImage:            "buildImage-v3",
			Deploy:                "deploy-v3",
			Webhook:               "webhook_queue-v3",
		}, names)
	})

	testutil.Run(t, "empty job version leaves base names", func(t *testutil.T) {
		names := NewNames("")
		t.CheckDeepEqual("resolveAndDeployBuildQueue", names.ResolveAndDeployBuild)
	})
}

func TestDefaultQueueOptions(t *testing.T) {
	testutil.Run(t, "matches §4.5 defaults", func(t *testutil.T) {
		opts := DefaultQueueOptions(5)
		t.CheckDeepEqual(QueueOptions{
			Attempts:        1,
			Timeout:         3600 * time.Second,
			RemoveOnSuccess: true,
			Concurrency:     5,
		}, opts)
	})
}

func TestSumConcurrency(t *testing.T) {
	testutil.Run(t, "sums all queues", func(t *testutil.T) {
		t.CheckDeepEqual(6, sumConcurrency(map[string]int{"a": 2, "b": 4}))
	})

	testutil.Run(t, "floors at 1 when empty", func(t *testutil.T) {
		t.CheckDeepEqual(1, sumConcurrency(map[string]int{}))
	})
}

func TestMaxInt(t *testing.T) {
	testutil.Run(t, "picks larger", func(t *testutil.T) {
		t.CheckDeepEqual(3, maxInt(3, 0))
		t.CheckDeepEqual(0, maxInt(-1, 0))
	})
}
