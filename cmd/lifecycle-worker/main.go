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

// lifecycle-worker is the queue-consumer process: it wires every
// component into a buildservice.Service and runs the four named queues
// (§4.5/§4.6) until told to stop.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Underdog-Inc/lifecycle-sub002/internal/buildservice"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/envrender"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/forge"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/helmrelease"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/imagebuild"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/k8sclient"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/model"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/procconfig"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/queue"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/store"
	"github.com/Underdog-Inc/lifecycle-sub002/internal/webhook"
)

func main() {
	cmd := &cobra.Command{
		Use:   "lifecycle-worker",
		Short: "Runs the lifecycle resolve/build/deploy/teardown/webhook queue consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Fatal("lifecycle-worker exited with an error")
	}
}

func run(ctx context.Context) error {
	cfg, err := procconfig.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	st := store.New(db)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)

	tokens, err := forge.NewInstallationTokenSource(cfg.GitHubAppID, cfg.GitHubInstallationID, []byte(cfg.GitHubPrivateKey), cfg.GitHubBaseURL)
	if err != nil {
		return fmt.Errorf("building github app token source: %w", err)
	}
	cache := forge.NewCache(rdb, 10*time.Minute)
	limits := forge.DefaultLimits
	limits.Rmax = cfg.MaxGitHubAPIRequest
	limits.Twindow = cfg.GitHubAPIRequestWindow
	forgeClient := forge.New(cfg.GitHubBaseURL, tokens, cache, limits, log.WithField("component", "forge"))

	clientset, err := k8sclient.New()
	if err != nil {
		return fmt.Errorf("building kubernetes client: %w", err)
	}

	domain, err := loadDomainDefaults(ctx, st)
	if err != nil {
		return fmt.Errorf("loading domainDefaults GlobalConfig: %w", err)
	}
	// Renderer.Defaults is set exactly once here, at process start-up, and
	// never mutated again: every asynq handler goroutine renders through
	// this same shared pointer, so a per-request mutation would race.
	renderer := envrender.New(domain)

	releaser := &helmrelease.Releaser{
		Clientset: clientset,
		PollEvery: 5 * time.Second,
		Timeout:   10 * time.Minute,
		Log:       log.WithField("component", "helmrelease"),
	}

	builders := map[model.BuildEngine]imagebuild.Builder{
		model.BuildEngineNative: &imagebuild.NativeBuilder{
			Clientset: clientset,
			Namespace: "lifecycle-builds",
			Engine:    "buildkit",
			PollEvery: 5 * time.Second,
			Timeout:   20 * time.Minute,
		},
	}
	if runnerCLI := os.Getenv("EXTERNAL_CI_RUNNER_CLI"); runnerCLI != "" {
		builders[model.BuildEngineExternal] = &imagebuild.ExternalCIBuilder{RunnerCLI: runnerCLI}
	}

	dispatcher := webhook.NewDispatcher(st, renderer, clientset, &http.Client{Timeout: 30 * time.Second}, log.WithField("component", "webhook"))

	concurrency := map[string]int{}
	manager := queue.NewManager(redisOpts.Addr, cfg.JobVersion, concurrency, log.WithField("component", "queue"))

	svc := &buildservice.Service{
		Store:    st,
		Forge:    forgeClient,
		Queue:    manager,
		Redis:    rdb,
		Renderer: renderer,
		Builders: builders,
		Releaser: releaser,
		Webhooks: dispatcher,
		Log:      log.WithField("component", "buildservice"),
	}

	names := manager.Names()
	manager.HandleFunc(queue.TaskResolveAndDeployBuild, svc.HandleResolve)
	manager.HandleFunc(queue.TaskBuildImage, svc.HandleBuildImage)
	manager.HandleFunc(queue.TaskDeploy, svc.HandleDeploy)
	manager.HandleFunc(queue.TaskTeardown, svc.HandleTeardown)
	manager.HandleFunc(queue.TaskWebhook, svc.HandleWebhook)

	log.WithFields(logrus.Fields{
		"resolveQueue": names.ResolveAndDeployBuild,
		"buildQueue":   names.BuildImage,
		"deployQueue":  names.Deploy,
		"webhookQueue": names.Webhook,
	}).Info("lifecycle-worker starting")

	return manager.Run(ctx)
}

func loadDomainDefaults(ctx context.Context, st *store.Store) (envrender.DomainDefaults, error) {
	var cfg struct {
		HTTP             string `json:"http"`
		DefaultUUID      string `json:"defaultUUID"`
		DefaultNamespace string `json:"defaultNamespace"`
	}
	raw, err := st.GetGlobalConfig(ctx, "domainDefaults")
	if err != nil {
		// absent on a fresh install; the renderer falls back to its own
		// zero-value defaults until an operator populates the row.
		return envrender.DomainDefaults{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return envrender.DomainDefaults{}, err
	}
	return envrender.DomainDefaults{
		DefaultUUID:        cfg.DefaultUUID,
		DefaultNamespace:   cfg.DefaultNamespace,
		DomainDefaultsHTTP: cfg.HTTP,
	}, nil
}

func newLogger(level string) *logrus.Entry {
	log := logrus.New()
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return logrus.NewEntry(log)
}
