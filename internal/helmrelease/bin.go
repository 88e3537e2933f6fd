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
	"bytes"
	"context"
	"os/exec"

	"github.com/pkg/errors"
)

// execCommand is overridden in tests the way the teacher overrides its
// util.DefaultExecCommand.
var execCommand = runHelm

func runHelm(ctx context.Context, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, "helm", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// runArgs shells out to the helm binary with args, wrapping a non-zero
// exit with the captured stderr.
func runArgs(ctx context.Context, args ...string) ([]byte, error) {
	stdout, stderr, err := execCommand(ctx, args...)
	if err != nil {
		return stdout, errors.Wrapf(err, "helm %v: %s", args, stderr)
	}
	return stdout, nil
}
