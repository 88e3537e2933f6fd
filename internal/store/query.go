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

package store

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// SortDir is the direction of a Query.OrderBy clause.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// Query is a composable, typed filter builder over one gorm model type,
// used by the (out-of-core) REST list endpoints (§6 GET /builds) and by
// internal callers that need a subset match (e.g. "active deploys for
// build X").
type Query[T any] struct {
	db     *gorm.DB
	limit  int
	offset int
}

// NewQuery starts a query over model T against s.
func NewQuery[T any](s *Store) *Query[T] {
	var zero T
	return &Query[T]{db: s.db.Model(&zero)}
}

// Where adds a raw SQL condition with args, mirroring gorm's own Where
// contract; kept thin rather than re-abstracted since every caller already
// knows its column names.
func (q *Query[T]) Where(cond string, args ...interface{}) *Query[T] {
	q.db = q.db.Where(cond, args...)
	return q
}

// StatusIn filters rows whose status column is one of the given values.
func (q *Query[T]) StatusIn(values ...string) *Query[T] {
	if len(values) == 0 {
		return q
	}
	q.db = q.db.Where("status IN ?", values)
	return q
}

// CreatedBetween filters rows created within [from, to].
func (q *Query[T]) CreatedBetween(from, to time.Time) *Query[T] {
	q.db = q.db.Where("created_at BETWEEN ? AND ?", from, to)
	return q
}

// LikeAny does a free-text LIKE match across the given columns (e.g.
// uuid/branchName/title), ORed together.
func (q *Query[T]) LikeAny(term string, columns ...string) *Query[T] {
	if term == "" || len(columns) == 0 {
		return q
	}
	pattern := "%" + term + "%"
	cond := ""
	args := make([]interface{}, 0, len(columns))
	for i, col := range columns {
		if i > 0 {
			cond += " OR "
		}
		cond += col + " LIKE ?"
		args = append(args, pattern)
	}
	q.db = q.db.Where(cond, args...)
	return q
}

// OrderBy appends a sort clause; field∈{createdAt,updatedAt,status} maps
// to the matching snake_case column per §6.
func (q *Query[T]) OrderBy(field string, dir SortDir) *Query[T] {
	q.db = q.db.Order(toSnakeColumn(field) + " " + string(dir))
	return q
}

func toSnakeColumn(field string) string {
	switch field {
	case "createdAt":
		return "created_at"
	case "updatedAt":
		return "updated_at"
	default:
		return field
	}
}

// Offset sets the pagination offset (0-based).
func (q *Query[T]) Offset(n int) *Query[T] {
	q.offset = n
	return q
}

// Limit sets the page size, clamped by callers to [1,100] per §6.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.limit = n
	return q
}

// Find executes the query, returning matched rows.
func (q *Query[T]) Find(ctx context.Context) ([]T, error) {
	var rows []T
	db := q.db.WithContext(ctx)
	if q.offset > 0 {
		db = db.Offset(q.offset)
	}
	if q.limit > 0 {
		db = db.Limit(q.limit)
	}
	if err := db.Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// Count returns the total number of matching rows, ignoring Offset/Limit.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.WithContext(ctx).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// DeploySummaryRow is one row of the aggregated deploySummary read view
// (§4.1): a denormalised join of build/deploy/deployable/pull_request used
// by the list-builds REST surface.
type DeploySummaryRow struct {
	BuildUUID    string `gorm:"column:build_uuid"`
	DeployUUID   string `gorm:"column:deploy_uuid"`
	ServiceName  string `gorm:"column:service_name"`
	BuildStatus  string `gorm:"column:build_status"`
	DeployStatus string `gorm:"column:deploy_status"`
	PRNumber     int    `gorm:"column:pr_number"`
	BranchName   string `gorm:"column:branch_name"`
	PublicURL    string `gorm:"column:public_url"`
}

const deploySummarySQL = `
SELECT b.uuid AS build_uuid,
       d.uuid AS deploy_uuid,
       da.name AS service_name,
       b.status AS build_status,
       d.status AS deploy_status,
       pr.pr_number AS pr_number,
       pr.branch_name AS branch_name,
       d.public_url AS public_url
FROM deploys d
JOIN builds b ON b.id = d.build_id
JOIN deployables da ON da.id = d.deployable_id
JOIN pull_requests pr ON pr.id = b.pull_request_id
WHERE b.uuid = ?
ORDER BY da.name`

// RawDeploySummary runs the aggregated deploySummary read for one build.
func (s *Store) RawDeploySummary(ctx context.Context, buildUUID string) ([]DeploySummaryRow, error) {
	var rows []DeploySummaryRow
	if err := s.Raw(ctx, &rows, deploySummarySQL, buildUUID); err != nil {
		return nil, err
	}
	return rows, nil
}
