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

// Package lock implements the single-flight per-build/per-deploy locks
// named in §4.5: a Redis `SET NX PX` acquire and a compare-and-delete Lua
// release. A single-node Redis target only needs this pattern, not a full
// multi-master Redlock (see DESIGN.md).
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes key only if its value still matches the token this
// holder set, so a stale holder can never release a lock it no longer owns.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lock is a held Redis mutex. Release is a no-op if the lock already
// expired or was taken over by another holder.
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// Acquire attempts to take the named lock for ttl, returning ok=false
// without error if another holder currently has it.
func Acquire(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (*Lock, bool, error) {
	token := uuid.NewString()
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{rdb: rdb, key: key, token: token}, true, nil
}

// Release drops the lock if this holder's token still owns it.
func (l *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}

// Extend pushes the lock's expiry out by ttl, as long as this holder still
// owns it (used by long-running jobs to avoid losing the lock mid-flight).
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	extendScript := redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)
	return extendScript.Run(ctx, l.rdb, []string{l.key}, l.token, ttl.Milliseconds()).Err()
}

// BuildResolveKey names the per-build resolve lock (§4.5).
func BuildResolveKey(buildID string) string {
	return "build:" + buildID + ":resolve"
}

// DeployBuildKey names the per-deploy image-build lock (§4.5).
func DeployBuildKey(deployID string) string {
	return "deploy:" + deployID + ":build"
}

// DeployDeployKey names the per-deploy Helm-release lock (§4.5).
func DeployDeployKey(deployID string) string {
	return "deploy:" + deployID + ":deploy"
}
