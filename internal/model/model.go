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

// Package model holds the persisted entity types shared by the store and
// every core component: Repository, Environment, PullRequest, Build,
// Deployable, Deploy, WebhookInvocation and GlobalConfig, per spec §3.
package model

import "time"

// BuildStatus is Build.status, see spec §4.6.
type BuildStatus string

const (
	BuildPending     BuildStatus = "PENDING"
	BuildQueued      BuildStatus = "QUEUED"
	BuildBuilding    BuildStatus = "BUILDING"
	BuildBuilt       BuildStatus = "BUILT"
	BuildDeploying   BuildStatus = "DEPLOYING"
	BuildDeployed    BuildStatus = "DEPLOYED"
	BuildError       BuildStatus = "ERROR"
	BuildConfigError BuildStatus = "CONFIG_ERROR"
	BuildTearingDown BuildStatus = "TEARING_DOWN"
	BuildTornDown    BuildStatus = "TORN_DOWN"
)

// DeployStatus is Deploy.status, see spec §4.6.
type DeployStatus string

const (
	DeployQueued      DeployStatus = "QUEUED"
	DeployCloning     DeployStatus = "CLONING"
	DeployBuilding    DeployStatus = "BUILDING"
	DeployBuilt       DeployStatus = "BUILT"
	DeployDeploying   DeployStatus = "DEPLOYING"
	DeployWaiting     DeployStatus = "WAITING"
	DeployReady       DeployStatus = "READY"
	DeployBuildFailed DeployStatus = "BUILD_FAILED"
	DeployDeployFail  DeployStatus = "DEPLOY_FAILED"
	DeployError       DeployStatus = "ERROR"
	DeployTornDown    DeployStatus = "TORN_DOWN"
)

// PullRequestStatus is PullRequest.status.
type PullRequestStatus string

const (
	PRStatusOpen   PullRequestStatus = "open"
	PRStatusClosed PullRequestStatus = "closed"
	PRStatusMerged PullRequestStatus = "merged"
)

// DeployType is the closed set of top-level service kinds a Deployable may
// declare, per spec §4.3 step 3.
type DeployType string

const (
	DeployTypeGithub        DeployType = "github"
	DeployTypeDocker        DeployType = "docker"
	DeployTypeCodefresh     DeployType = "codefresh"
	DeployTypeExternalHTTP  DeployType = "externalHttp"
	DeployTypeAuroraRestore DeployType = "auroraRestore"
	DeployTypeRDSRestore    DeployType = "rdsRestore"
	DeployTypeConfiguration DeployType = "configuration"
	DeployTypeHelm          DeployType = "helm"
)

// CapacityType distinguishes ephemeral from static/long-lived resourcing.
type CapacityType string

const (
	CapacitySpot CapacityType = "spot"
	CapacityOnDemand CapacityType = "on-demand"
)

// WebhookType is the closed set of webhook dispatch kinds, §4.9.
type WebhookType string

const (
	WebhookTypeCodefresh WebhookType = "codefresh"
	WebhookTypeDocker    WebhookType = "docker"
	WebhookTypeCommand   WebhookType = "command"
)

// WebhookInvocationState reflects WebhookInvocation.status, §3.
type WebhookInvocationState string

const (
	WebhookExecuting WebhookInvocationState = "executing"
	WebhookCompleted WebhookInvocationState = "completed"
	WebhookFailed    WebhookInvocationState = "failed"
)

// BuildEngine distinguishes the two Image Builder back-ends, §4.7.
type BuildEngine string

const (
	BuildEngineNative   BuildEngine = "native"
	BuildEngineExternal BuildEngine = "external"
)

// Repository is a forge repository identity, §3.
type Repository struct {
	ID               uint `gorm:"primaryKey"`
	OwnerID          string
	RepoID           string `gorm:"uniqueIndex"`
	InstallationID   string
	FullName         string
	HTMLURL          string
	DefaultEnvID     *uint
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Repository) TableName() string { return "repositories" }

// Environment is a logical namespace identity keyed by name, §3.
type Environment struct {
	ID              uint `gorm:"primaryKey"`
	Name            string `gorm:"uniqueIndex"`
	UUID            string
	ClassicModeOnly bool
	EnableFullYaml  bool
	AutoDeploy      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Environment) TableName() string { return "environments" }

// PullRequest, §3.
type PullRequest struct {
	ID               uint `gorm:"primaryKey"`
	RepositoryID     uint
	Repository       *Repository `gorm:"foreignKey:RepositoryID"`
	PRNumber         int
	Title            string
	Status           PullRequestStatus
	BranchName       string
	FullName         string
	LatestCommit     string
	GithubLogin      string
	CommentID        string
	StatusCommentID  string
	Etag             string
	Labels           StringSlice `gorm:"serializer:json"`
	DeployOnUpdate   bool
	LatestBuildID    *uint
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (PullRequest) TableName() string { return "pull_requests" }

// Build, §3.
type Build struct {
	ID                uint `gorm:"primaryKey"`
	UUID              string `gorm:"uniqueIndex"`
	PullRequestID     uint
	PullRequest       *PullRequest `gorm:"foreignKey:PullRequestID"`
	EnvironmentID     uint
	Environment       *Environment `gorm:"foreignKey:EnvironmentID"`
	Status            BuildStatus
	StatusMessage     string
	SHA               string
	Namespace         string
	EnableFullYaml    bool
	IsStatic          bool
	WebhooksYaml      string
	DependencyGraph   string
	DashboardLinks    StringSlice `gorm:"serializer:json"`
	Manifest          string
	RunUUID           string
	CommentRuntimeEnv MapStringString `gorm:"serializer:json"`
	EnabledFeatures   StringSlice `gorm:"serializer:json"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Build) TableName() string { return "builds" }

// HasFeature reports whether a feature flag is present in EnabledFeatures.
func (b *Build) HasFeature(flag string) bool {
	for _, f := range b.EnabledFeatures {
		if f == flag {
			return true
		}
	}
	return false
}

// HelmChart is the `helm.chart` sub-object of a Deployable, §3. Values and
// ValueFiles are order-preserving per the store's insertion-order
// invariant.
type HelmChart struct {
	Name       string   `json:"name"`
	RepoURL    string   `json:"repoUrl"`
	Version    string   `json:"version"`
	Values     []string `json:"values"`
	ValueFiles []string `json:"valueFiles"`
}

// HelmSpec is the `helm` sub-object of a Deployable.
type HelmSpec struct {
	Chart                   HelmChart `json:"chart"`
	Type                    string    `json:"type"`
	Args                    []string  `json:"args"`
	Action                  string    `json:"action"`
	DisableIngressHost      bool      `json:"disableIngressHost"`
	OverrideDefaultIPWhitelist []string `json:"overrideDefaultIpWhitelist"`
}

// DockerSpec is the `docker` sub-object of a Deployable.
type DockerSpec struct {
	DockerfilePath          string `json:"dockerfilePath"`
	InitDockerfilePath      string `json:"initDockerfilePath"`
	AfterBuildPipelineID    string `json:"afterBuildPipelineId"`
	DetachAfterBuildPipeline bool  `json:"detachAfterBuildPipeline"`
	ECR                     string `json:"ecr"`
}

// DeploymentSpec is the `deployment` sub-object (resources/readiness/network).
type DeploymentSpec struct {
	CPURequest     string `json:"cpuRequest"`
	CPULimit       string `json:"cpuLimit"`
	MemoryRequest  string `json:"memoryRequest"`
	MemoryLimit    string `json:"memoryLimit"`
	ReadinessPath  string `json:"readinessPath"`
	ReadinessPort  int    `json:"readinessPort"`
	NetworkPolicy  string `json:"networkPolicy"`
}

// Deployable is the per-service spec materialised from YAML for a build, §3.
type Deployable struct {
	ID                  uint `gorm:"primaryKey"`
	BuildID             uint
	Build               *Build `gorm:"foreignKey:BuildID"`
	Name                string
	Type                DeployType
	BranchName          string
	Env                 MapStringString `gorm:"serializer:json"`
	InitEnv             MapStringString `gorm:"serializer:json"`
	Ports               IntSlice `gorm:"serializer:json"`
	Public              bool
	GRPC                bool
	CapacityType        CapacityType
	Helm                *HelmSpec `gorm:"serializer:json"`
	Docker              *DockerSpec `gorm:"serializer:json"`
	Deployment          *DeploymentSpec `gorm:"serializer:json"`
	KedaScaleToZero     bool
	DeploymentDependsOn StringSlice `gorm:"serializer:json"`
	BuildUUID           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Deployable) TableName() string { return "deployables" }

// Deploy is the per-service runtime state, §3.
type Deploy struct {
	ID                uint `gorm:"primaryKey"`
	UUID              string `gorm:"uniqueIndex"`
	BuildID           uint
	Build             *Build `gorm:"foreignKey:BuildID"`
	DeployableID      uint
	Deployable        *Deployable `gorm:"foreignKey:DeployableID"`
	ServiceID         *uint
	Status            DeployStatus
	StatusMessage     string
	Active            bool
	DockerImage       string
	InitDockerImage   string
	PublicURL         string
	InternalHostname  string
	IPAddress         string
	Port              int
	BranchName        string
	Tag               string
	SHA               string
	ReplicaCount      int
	Env               MapStringString `gorm:"serializer:json"`
	InitEnv           MapStringString `gorm:"serializer:json"`
	BuildLogs         string
	ContainerLogs     string
	RunUUID           string
	YamlConfig        string
	IsRunningLatest   bool
	RunningImage      string
	DeployPipelineID  string
	BuildOutput       string
	BuildJobName      string
	GithubDeploymentID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Deploy) TableName() string { return "deploys" }

// WebhookInvocation, §3.
type WebhookInvocation struct {
	ID         uint `gorm:"primaryKey"`
	BuildID    uint
	RunUUID    string
	Name       string
	Type       WebhookType
	State      BuildStatus
	YamlConfig string
	Metadata   MapStringString `gorm:"serializer:json"`
	Status     WebhookInvocationState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (WebhookInvocation) TableName() string { return "webhook_invocations" }

// GlobalConfig is the process-wide key-value default map, §3. Each row is
// one top-level config key (chart defaults, domain defaults, deploy
// cluster, default UUID, image registry, allow-lists, orgChartName); the
// value is stored as JSON so heterogeneous shapes share one table.
type GlobalConfig struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

func (GlobalConfig) TableName() string { return "global_config" }

// StringSlice and MapStringString are gorm-serializable aliases used where
// the store must preserve an association's declared order (ports, values,
// valueFiles) versus treat it as a set/map by natural key.
type StringSlice []string
type IntSlice []int
type MapStringString map[string]string
