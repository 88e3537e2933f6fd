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

// Package lifecycleerrors defines the error taxonomy shared by every core
// component: ConfigError, DependencyCycle, Transient, Permanent, Conflict
// and NotFound. Workers and the store translate lower-level errors into
// these at phase boundaries so callers can dispatch on type rather than
// string-matching error messages.
package lifecycleerrors

import "fmt"

// ConfigError wraps an invalid or missing YAML spec, or a schema
// validation failure. Surfaces as Build.status=CONFIG_ERROR.
type ConfigError struct {
	Reason string
	Errs   []string
}

func (e *ConfigError) Error() string {
	if len(e.Errs) == 0 {
		return fmt.Sprintf("config error: %s", e.Reason)
	}
	return fmt.Sprintf("config error: %s: %v", e.Reason, e.Errs)
}

// NewConfigError builds a ConfigError with an optional list of validation
// failures.
func NewConfigError(reason string, errs ...string) *ConfigError {
	return &ConfigError{Reason: reason, Errs: errs}
}

// DependencyCycleError names a cycle found while building the deployment
// ordering graph.
type DependencyCycleError struct {
	Cycle []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", cyclePath(e.Cycle))
}

func cyclePath(cycle []string) string {
	out := ""
	for i, n := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}

// NewDependencyCycleError builds a DependencyCycleError naming the cycle in
// declaration order, closing the loop back to the first node.
func NewDependencyCycleError(cycle []string) *DependencyCycleError {
	closed := append(append([]string{}, cycle...), cycle[0])
	return &DependencyCycleError{Cycle: closed}
}

// Transient marks an error that is safe to retry in place: HTTP 5xx,
// transport failures, broker reconnects, cache-miss races.
type Transient struct {
	Cause error
}

func (e *Transient) Error() string { return fmt.Sprintf("transient error: %v", e.Cause) }
func (e *Transient) Unwrap() error { return e.Cause }

// NewTransient wraps cause as a Transient error.
func NewTransient(cause error) *Transient { return &Transient{Cause: cause} }

// Permanent marks a non-retriable failure of a build or deploy phase:
// image build exited non-zero, Helm release rejected, registry auth
// failure. Aggregates to Build.status=ERROR.
type Permanent struct {
	Cause error
}

func (e *Permanent) Error() string { return fmt.Sprintf("permanent error: %v", e.Cause) }
func (e *Permanent) Unwrap() error { return e.Cause }

// NewPermanent wraps cause as a Permanent error.
func NewPermanent(cause error) *Permanent { return &Permanent{Cause: cause} }

// ConflictError signals a unique-constraint violation. Callers MUST treat
// this as "already exists" and proceed rather than fail the operation.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s already exists for key %q", e.Entity, e.Key)
}

// NewConflict builds a ConflictError.
func NewConflict(entity, key string) *ConflictError {
	return &ConflictError{Entity: entity, Key: key}
}

// NotFoundError signals a request for a missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Entity, e.Key)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// IsRetriable reports whether err should be retried in place by a queue
// worker rather than surfaced as a terminal failure.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*Transient)
	return ok
}

// Truncate clips a human-readable message to the 1024-char bound §7
// requires for statusMessage.
func Truncate(msg string) string {
	const max = 1024
	if len(msg) <= max {
		return msg
	}
	return msg[:max]
}
