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

// lifecycle-server is the REST + forge-webhook-receiver process: the
// §6 "consumed by external UI, not part of the core" HTTP surface, plus
// the inbound forge webhook endpoint that is part of the core (it is how
// PR events enter the system in the first place).
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
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

// server holds the REST layer's dependencies; every handler hangs off it.
type server struct {
	cfg         procconfig.Config
	store       *store.Store
	svc         *buildservice.Service
	configCache *configCache
	log         *logrus.Entry
}

func main() {
	cmd := &cobra.Command{
		Use:   "lifecycle-server",
		Short: "Runs the lifecycle REST API and forge webhook receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Fatal("lifecycle-server exited with an error")
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
	dispatcher := webhook.NewDispatcher(st, renderer, clientset, &http.Client{Timeout: 30 * time.Second}, log.WithField("component", "webhook"))
	manager := queue.NewManager(redisOpts.Addr, cfg.JobVersion, nil, log.WithField("component", "queue"))

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

	srv := &server{cfg: cfg, store: st, svc: svc, configCache: newConfigCache(), log: log.WithField("component", "api")}
	if err := srv.configCache.refresh(ctx, st); err != nil {
		log.WithError(err).Warn("initial config cache load failed, starting with an empty cache")
	}

	httpServer := &http.Server{
		Addr:         cfg.AppHost,
		Handler:      srv.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.AppHost).Info("lifecycle-server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server exited: %w", err)
	}
}

// router assembles the §6 REST surface and the forge webhook receiver.
func (srv *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(chiLogger(srv.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
	}))

	r.Post("/api/webhooks/forge", srv.forgeWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/builds", srv.listBuilds)
		r.Route("/builds/{uuid}", func(r chi.Router) {
			r.Get("/", srv.getBuild)
			r.Get("/graph", srv.getGraph)
			r.Get("/services", srv.getServices)
			r.Post("/deploy", srv.postDeploy)
			r.Patch("/torndown", srv.patchTorndown)
			r.Post("/webhooks", srv.postWebhooks)
		})
		r.Post("/schema/validate", srv.postSchemaValidate)
		r.Get("/config/cache", srv.getConfigCache)
		r.Put("/config/cache", srv.putConfigCache)
	})

	return r
}

// chiLogger adapts the shared logrus entry into chi's request-logging
// middleware shape, matching the teacher's field-based structured log
// lines rather than chi's default stdlib-logger output.
func chiLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"duration": time.Since(start).String(),
			}).Info("request")
		})
	}
}

func loadDomainDefaults(ctx context.Context, st *store.Store) (envrender.DomainDefaults, error) {
	var cfg struct {
		HTTP             string `json:"http"`
		DefaultUUID      string `json:"defaultUUID"`
		DefaultNamespace string `json:"defaultNamespace"`
	}
	raw, err := st.GetGlobalConfig(ctx, "domainDefaults")
	if err != nil {
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
