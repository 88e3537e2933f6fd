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

package lock

import (
	"testing"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/testutil"
)

func TestKeyNaming(t *testing.T) {
	testutil.Run(t, "build resolve key", func(t *testutil.T) {
		t.CheckDeepEqual("build:b1:resolve", BuildResolveKey("b1"))
	})

	testutil.Run(t, "deploy build key", func(t *testutil.T) {
		t.CheckDeepEqual("deploy:d1:build", DeployBuildKey("d1"))
	})

	testutil.Run(t, "deploy deploy key", func(t *testutil.T) {
		t.CheckDeepEqual("deploy:d1:deploy", DeployDeployKey("d1"))
	})
}
