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

// Package v1_0_0 is the first registered lifecycle YAML schema version.
// Its shape mirrors the teacher's own per-version schema packages
// (pkg/skaffold/schema/v1alphaN): a concrete typed Spec plus a JSON schema
// asset used purely for validation (unknown-property rejection), with the
// typed struct used for everything past that point.
package v1_0_0

// Spec is the root of one lifecycle.yaml document.
type Spec struct {
	Version  string         `json:"version"`
	Services []ServiceSpec  `json:"services"`
	Webhooks []WebhookSpec  `json:"webhooks,omitempty"`
}

// ServiceSpec is one `services[]` entry. Exactly one of the type-specific
// sub-objects must be set (§4.3 step 3); DetectType reports which.
type ServiceSpec struct {
	Name                string            `json:"name"`
	Public              bool              `json:"public,omitempty"`
	GRPC                bool              `json:"grpc,omitempty"`
	CapacityType        string            `json:"capacityType,omitempty"`
	Ports               []int             `json:"ports,omitempty"`
	Env                 map[string]string `json:"env,omitempty"`
	InitEnv             map[string]string `json:"initEnv,omitempty"`
	KedaScaleToZero     bool              `json:"kedaScaleToZero,omitempty"`
	DeploymentDependsOn []string          `json:"deploymentDependsOn,omitempty"`

	Github        *struct{}      `json:"github,omitempty"`
	Docker        *DockerSpec    `json:"docker,omitempty"`
	Codefresh     *struct{}      `json:"codefresh,omitempty"`
	ExternalHTTP  *ExternalHTTP  `json:"externalHttp,omitempty"`
	AuroraRestore *struct{}      `json:"auroraRestore,omitempty"`
	RDSRestore    *struct{}      `json:"rdsRestore,omitempty"`
	Configuration *struct{}      `json:"configuration,omitempty"`
	Helm          *HelmSpec      `json:"helm,omitempty"`

	Deployment *DeploymentSpec `json:"deployment,omitempty"`
}

// DockerSpec mirrors model.DockerSpec's wire shape.
type DockerSpec struct {
	DockerfilePath           string `json:"dockerfilePath"`
	InitDockerfilePath       string `json:"initDockerfilePath,omitempty"`
	AfterBuildPipelineID     string `json:"afterBuildPipelineId,omitempty"`
	DetachAfterBuildPipeline bool   `json:"detachAfterBuildPipeline,omitempty"`
	ECR                      string `json:"ecr,omitempty"`
}

// ExternalHTTP is the `externalHttp` service kind: a pre-existing,
// externally-reachable URL with no build/deploy of our own.
type ExternalHTTP struct {
	URL string `json:"url"`
}

// HelmChart mirrors model.HelmChart's wire shape.
type HelmChart struct {
	Name       string   `json:"name"`
	RepoURL    string   `json:"repoUrl,omitempty"`
	Version    string   `json:"version,omitempty"`
	Values     []string `json:"values,omitempty"`
	ValueFiles []string `json:"valueFiles,omitempty"`
}

// HelmSpec mirrors model.HelmSpec's wire shape.
type HelmSpec struct {
	Chart                      HelmChart `json:"chart"`
	Type                       string    `json:"type,omitempty"`
	Args                       []string  `json:"args,omitempty"`
	Action                     string    `json:"action,omitempty"`
	DisableIngressHost         bool      `json:"disableIngressHost,omitempty"`
	OverrideDefaultIPWhitelist []string  `json:"overrideDefaultIpWhitelist,omitempty"`
}

// DeploymentSpec mirrors model.DeploymentSpec's wire shape.
type DeploymentSpec struct {
	CPURequest    string `json:"cpuRequest,omitempty"`
	CPULimit      string `json:"cpuLimit,omitempty"`
	MemoryRequest string `json:"memoryRequest,omitempty"`
	MemoryLimit   string `json:"memoryLimit,omitempty"`
	ReadinessPath string `json:"readinessPath,omitempty"`
	ReadinessPort int    `json:"readinessPort,omitempty"`
	NetworkPolicy string `json:"networkPolicy,omitempty"`
}

// WebhookSpec is one `webhooks[]` entry (§4.9).
type WebhookSpec struct {
	Name  string            `json:"name"`
	Type  string            `json:"type"`
	State string            `json:"state"`
	Env   map[string]string `json:"env,omitempty"`

	Image   string   `json:"image,omitempty"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	Script  string   `json:"script,omitempty"`
}

// DetectType reports which closed-set deploy type this service declares,
// and an error if zero or more than one type-specific key is present.
func (s ServiceSpec) DetectType() (string, error) {
	present := map[string]bool{
		"github":        s.Github != nil,
		"docker":        s.Docker != nil,
		"codefresh":     s.Codefresh != nil,
		"externalHttp":  s.ExternalHTTP != nil,
		"auroraRestore": s.AuroraRestore != nil,
		"rdsRestore":    s.RDSRestore != nil,
		"configuration": s.Configuration != nil,
		"helm":          s.Helm != nil,
	}
	found := ""
	count := 0
	for k, v := range present {
		if v {
			found = k
			count++
		}
	}
	switch count {
	case 0:
		return "", errNoType(s.Name)
	case 1:
		return found, nil
	default:
		return "", errMultipleTypes(s.Name)
	}
}
