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

// Package store implements typed persistence for the core entities (§4.1):
// find-by-uuid with eager loads, a composable query builder, atomic
// patches, and the aggregated deploySummary raw read.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
)

// Store wraps a *gorm.DB connection pool. Callers share one Store per
// process; gorm's own pool bounds concurrent connections.
type Store struct {
	db *gorm.DB
}

// New wraps an already-opened *gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// translate maps a gorm/pg error into the §7 taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return lifecycleerrors.NewNotFound("entity", "")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return lifecycleerrors.NewConflict("entity", pgErr.ConstraintName)
	}
	return lifecycleerrors.NewTransient(err)
}

// FindBuildByUUID loads a Build by its short kebab uuid, applying the
// requested eager-load spec (see Load).
func (s *Store) FindBuildByUUID(ctx context.Context, uuid string, spec string) (*model.Build, error) {
	q := s.db.WithContext(ctx)
	q = applyLoadSpec(q, spec)

	var b model.Build
	if err := q.Where("uuid = ?", uuid).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycleerrors.NewNotFound("Build", uuid)
		}
		return nil, translate(err)
	}
	return &b, nil
}

// FindDeployByUUID loads a Deploy by its uuid, applying the requested
// eager-load spec (see Load).
func (s *Store) FindDeployByUUID(ctx context.Context, uuid string, spec string) (*model.Deploy, error) {
	q := s.db.WithContext(ctx)
	q = applyLoadSpec(q, spec)

	var d model.Deploy
	if err := q.Where("uuid = ?", uuid).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycleerrors.NewNotFound("Deploy", uuid)
		}
		return nil, translate(err)
	}
	return &d, nil
}

// Load parses a small string-valued relation spec of the form
// "deploys.[service,deployable,repository]|environment|pullRequest.repository|deployables"
// into explicit Preload calls, per the §9 design note replacing deep ORM
// graph fetches with an enumerable, test-readable function.
func Load(db *gorm.DB, spec string) *gorm.DB {
	return applyLoadSpec(db, spec)
}

func applyLoadSpec(db *gorm.DB, spec string) *gorm.DB {
	if spec == "" {
		return db
	}
	for _, part := range strings.Split(spec, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		base, nested, hasNested := strings.Cut(part, ".[")
		if !hasNested {
			db = db.Preload(gormFieldName(part))
			continue
		}
		nested = strings.TrimSuffix(nested, "]")
		for _, child := range strings.Split(nested, ",") {
			child = strings.TrimSpace(child)
			if child == "" {
				continue
			}
			db = db.Preload(gormFieldName(base) + "." + gormFieldName(child))
		}
	}
	return db
}

// gormFieldName upper-cases the first rune of each dot-separated segment of
// a lower-camel relation path from the spec string (e.g. "pullRequest.repository"
// becomes "PullRequest.Repository"), matching gorm's own dotted nested-preload
// syntax.
func gormFieldName(s string) string {
	if s == "" {
		return s
	}
	segments := strings.Split(s, ".")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		segments[i] = strings.ToUpper(seg[:1]) + seg[1:]
	}
	return strings.Join(segments, ".")
}

// Patch atomically updates the given non-zero fields on entity's row,
// identified by its primary key.
func (s *Store) Patch(ctx context.Context, entity interface{}, fields map[string]interface{}) error {
	if err := s.db.WithContext(ctx).Model(entity).Updates(fields).Error; err != nil {
		return translate(err)
	}
	return nil
}

// PatchConditional updates fields on entity's row only when the named
// column does not already equal notEqual, returning whether a row was
// actually changed. Used by the terminal-state aggregator hooks (§4.6 step
// 5, §4.6 step 7) so a sibling completion that finds the Build already
// settled into the same status is a no-op rather than a re-dispatch.
func (s *Store) PatchConditional(ctx context.Context, entity interface{}, column string, notEqual interface{}, fields map[string]interface{}) (bool, error) {
	res := s.db.WithContext(ctx).Model(entity).Where(column+" != ?", notEqual).Updates(fields)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Reload re-reads entity's row into entity by primary key.
func (s *Store) Reload(ctx context.Context, entity interface{}) error {
	if err := s.db.WithContext(ctx).First(entity).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Create inserts a new row, translating unique-constraint violations to
// lifecycleerrors.ConflictError so callers can treat "already exists" as
// success per §7.
func (s *Store) Create(ctx context.Context, entity interface{}) error {
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Raw executes sql with params and scans the rows into dest (a pointer to
// a slice), used for the aggregated deploySummary read view (§4.1).
func (s *Store) Raw(ctx context.Context, dest interface{}, sql string, params ...interface{}) error {
	if err := s.db.WithContext(ctx).Raw(sql, params...).Scan(dest).Error; err != nil {
		return translate(err)
	}
	return nil
}

// DB exposes the underlying *gorm.DB for components (e.g. Query) that need
// to build further conditions; kept narrow and explicit rather than a
// general escape hatch.
func (s *Store) DB() *gorm.DB { return s.db }

// GetGlobalConfig reads one GlobalConfig row's raw JSON value by key,
// returning lifecycleerrors.NotFoundError if absent.
func (s *Store) GetGlobalConfig(ctx context.Context, key string) (string, error) {
	var row model.GlobalConfig
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", lifecycleerrors.NewNotFound("GlobalConfig", key)
		}
		return "", translate(err)
	}
	return row.Value, nil
}

// Transaction runs fn against a Store bound to a single DB transaction,
// committing on a nil return and rolling back otherwise. Used by the
// aggregator hook (§4.6 step 5) to read sibling deploys and patch Build
// atomically; the triggering deploy's own status patch is committed
// earlier, outside this transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
