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

package main

import (
	"context"
	"sync"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/store"
)

// configCache is the process-local read cache over the GlobalConfig table
// (§6 GET/PUT /config/cache): GET serves the in-memory snapshot, PUT
// reloads it from the store. Readers outnumber writers by a wide margin
// (every resolve/render path consults GlobalConfig), so a plain RWMutex
// over a map beats round-tripping the store per lookup.
type configCache struct {
	mu     sync.RWMutex
	values map[string]string
}

func newConfigCache() *configCache {
	return &configCache{values: map[string]string{}}
}

func (c *configCache) snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *configCache) refresh(ctx context.Context, st *store.Store) error {
	var rows []model.GlobalConfig
	if err := st.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}

	next := make(map[string]string, len(rows))
	for _, row := range rows {
		next[row.Key] = row.Value
	}

	c.mu.Lock()
	c.values = next
	c.mu.Unlock()
	return nil
}
