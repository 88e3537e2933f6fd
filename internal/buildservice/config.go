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

package buildservice

import (
	"context"
	"encoding/json"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/helmrelease"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/lifecycleerrors"
)

// registryConfig is the `GlobalConfig["imageRegistry"]` row: where built
// images are pushed and probed for cache hits (§4.7).
type registryConfig struct {
	ECRDomain string `json:"ecrDomain"`
	ECRRepo   string `json:"ecrRepo"`
}

// domainConfig is the `GlobalConfig["domainDefaults"]` row (§4.8 step 4,
// §4.4 publicUrl default-UUID fallback).
type domainConfig struct {
	HTTP             string `json:"http"`
	DefaultUUID      string `json:"defaultUUID"`
	DefaultNamespace string `json:"defaultNamespace"`
}

func (s *Service) registryConfig(ctx context.Context) (registryConfig, error) {
	var cfg registryConfig
	raw, err := s.Store.GetGlobalConfig(ctx, "imageRegistry")
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if ok := isNotFound(err, &nf); ok {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, lifecycleerrors.NewConfigError("invalid imageRegistry GlobalConfig: " + err.Error())
	}
	return cfg, nil
}

func (s *Service) domainConfig(ctx context.Context) (domainConfig, error) {
	var cfg domainConfig
	raw, err := s.Store.GetGlobalConfig(ctx, "domainDefaults")
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if ok := isNotFound(err, &nf); ok {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, lifecycleerrors.NewConfigError("invalid domainDefaults GlobalConfig: " + err.Error())
	}
	return cfg, nil
}

// chartDefaults reads `GlobalConfig[chartName]`'s override value list, per
// §4.8 step 4 layer 1. Absence is not an error: charts without a
// lifecycleDefaults row simply get no layer-1 overrides.
func (s *Service) chartDefaults(ctx context.Context, chartName string) ([]string, error) {
	if chartName == "" {
		return nil, nil
	}
	raw, err := s.Store.GetGlobalConfig(ctx, "chart:"+chartName)
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if ok := isNotFound(err, &nf); ok {
			return nil, nil
		}
		return nil, err
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, lifecycleerrors.NewConfigError("invalid chart GlobalConfig: " + err.Error())
	}
	return values, nil
}

// ipAllowList reads the optional default IP allow-list, overridden
// per-deployable by `helm.overrideDefaultIpWhitelist` (§4.8 step 4).
func (s *Service) ipAllowList(ctx context.Context) ([]string, error) {
	raw, err := s.Store.GetGlobalConfig(ctx, "ipAllowList")
	if err != nil {
		var nf *lifecycleerrors.NotFoundError
		if ok := isNotFound(err, &nf); ok {
			return nil, nil
		}
		return nil, err
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, lifecycleerrors.NewConfigError("invalid ipAllowList GlobalConfig: " + err.Error())
	}
	return values, nil
}

func isNotFound(err error, target **lifecycleerrors.NotFoundError) bool {
	nf, ok := err.(*lifecycleerrors.NotFoundError)
	if ok {
		*target = nf
	}
	return ok
}

func toHelmDomainDefaults(d domainConfig) helmrelease.DomainDefaults {
	return helmrelease.DomainDefaults{HTTP: d.HTTP}
}
