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

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// TagExists probes ecrDomain/ecrRepo:tag with a registry HEAD request
// (§4.7's "describe image by tag"). It returns (true, nil) if the tag
// exists, (false, nil) on a registry-reported not-found, a
// lifecycleerrors.Permanent if the reference cannot be parsed, and a
// lifecycleerrors.Transient otherwise.
func TagExists(ctx context.Context, ecrDomain, ecrRepo, tag string) (bool, error) {
	ref, err := name.ParseReference(fmt.Sprintf("%s/%s:%s", ecrDomain, ecrRepo, tag))
	if err != nil {
		return false, lifecycleerrors.NewPermanent(fmt.Errorf("parsing image reference: %w", err))
	}

	_, err = remote.Head(ref, remote.WithContext(ctx))
	if err == nil {
		return true, nil
	}

	var terr *transport.Error
	if asTransportError(err, &terr) && terr.StatusCode == 404 {
		return false, nil
	}
	return false, lifecycleerrors.NewTransient(err)
}

func asTransportError(err error, target **transport.Error) bool {
	terr, ok := err.(*transport.Error)
	if ok {
		*target = terr
	}
	return ok
}

// RegistryID extracts the registry id from an ECR domain: the first
// dot-separated segment, per §4.7.
func RegistryID(ecrDomain string) string {
	parts := strings.SplitN(ecrDomain, ".", 2)
	return parts[0]
}
