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

// Package queue wraps hibiken/asynq into the four named, jobVersion-suffixed
// durable queues of §4.5: resolveAndDeployBuildQueue, buildImage, deploy,
// and webhook_queue. A Manager is built once per process and shared by
// every enqueue call and, on worker processes, by the consuming Server.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// QueueOptions mirrors the §4.5 per-queue option table.
type QueueOptions struct {
	Attempts        int
	Timeout         time.Duration
	RemoveOnSuccess bool
	Concurrency     int
}

// DefaultQueueOptions applies the spec's stated defaults: attempts=1,
// timeout=3600s, removeOnComplete/Fail=true. maxStalledCount has no asynq
// equivalent; workers are written idempotent instead (§4.5 rationale
// carried into DESIGN.md), so it is intentionally not modeled here.
func DefaultQueueOptions(concurrency int) QueueOptions {
	return QueueOptions{
		Attempts:        1,
		Timeout:         3600 * time.Second,
		RemoveOnSuccess: true,
		Concurrency:     concurrency,
	}
}

// Names holds the four jobVersion-suffixed queue names used by the core.
type Names struct {
	ResolveAndDeployBuild string
	BuildImage            string
	Deploy                string
	Webhook               string
}

// NewNames suffixes each base queue name with jobVersion, as §6 requires so
// multiple deployed versions don't cross-consume each other's jobs.
func NewNames(jobVersion string) Names {
	suffix := func(base string) string {
		if jobVersion == "" {
			return base
		}
		return base + "-" + jobVersion
	}
	return Names{
		ResolveAndDeployBuild: suffix("resolveAndDeployBuildQueue"),
		BuildImage:            suffix("buildImage"),
		Deploy:                suffix("deploy"),
		Webhook:               suffix("webhook_queue"),
	}
}

// Manager is the process-wide queue client/server pair (§4.5 singleton).
type Manager struct {
	names   Names
	client  *asynq.Client
	server  *asynq.Server
	mux     *asynq.ServeMux
	options map[string]QueueOptions
	log     *logrus.Entry
}

// NewManager builds a Manager against redisAddr, registering the four core
// queues with per-queue concurrency drawn from concurrency (keyed by queue
// name; a queue absent from the map falls back to concurrency 1).
func NewManager(redisAddr string, jobVersion string, concurrency map[string]int, log *logrus.Entry) *Manager {
	names := NewNames(jobVersion)
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	queueConcurrency := map[string]int{}
	options := map[string]QueueOptions{}
	for _, name := range []string{names.ResolveAndDeployBuild, names.BuildImage, names.Deploy, names.Webhook} {
		c := concurrency[name]
		if c <= 0 {
			c = 1
		}
		queueConcurrency[name] = c
		options[name] = DefaultQueueOptions(c)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: sumConcurrency(queueConcurrency),
		Queues:      queueConcurrency,
	})

	return &Manager{
		names:   names,
		client:  asynq.NewClient(redisOpt),
		server:  server,
		mux:     asynq.NewServeMux(),
		options: options,
		log:     log,
	}
}

func sumConcurrency(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	if total == 0 {
		return 1
	}
	return total
}

// Names returns the jobVersion-suffixed queue names this Manager registered.
func (m *Manager) Names() Names { return m.names }

// taskOptions converts QueueOptions into the asynq.Option list applied at
// enqueue time for a task destined for queueName.
func (m *Manager) taskOptions(queueName string) []asynq.Option {
	opts := m.options[queueName]
	retention := time.Duration(0)
	if !opts.RemoveOnSuccess {
		retention = 24 * time.Hour
	}
	return []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(maxInt(opts.Attempts-1, 0)),
		asynq.Timeout(opts.Timeout),
		asynq.Retention(retention),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// EnqueueResolveAndDeployBuild schedules the resolve job for a build.
func (m *Manager) EnqueueResolveAndDeployBuild(ctx context.Context, payload ResolveAndDeployBuildPayload) error {
	task := asynq.NewTask(TaskResolveAndDeployBuild, marshal(payload))
	_, err := m.client.EnqueueContext(ctx, task, m.taskOptions(m.names.ResolveAndDeployBuild)...)
	return err
}

// EnqueueBuildImage schedules an image build for a single deploy.
func (m *Manager) EnqueueBuildImage(ctx context.Context, payload BuildImagePayload) error {
	task := asynq.NewTask(TaskBuildImage, marshal(payload))
	_, err := m.client.EnqueueContext(ctx, task, m.taskOptions(m.names.BuildImage)...)
	return err
}

// EnqueueDeploy schedules a Helm release for a single deploy, optionally
// delayed (used for the WAITING→DEPLOYING backoff retry in §4.6).
func (m *Manager) EnqueueDeploy(ctx context.Context, payload DeployPayload, delay time.Duration) error {
	task := asynq.NewTask(TaskDeploy, marshal(payload))
	opts := m.taskOptions(m.names.Deploy)
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	_, err := m.client.EnqueueContext(ctx, task, opts...)
	return err
}

// EnqueueTeardown schedules a single deploy's teardown onto the deploy
// queue (see TeardownPayload).
func (m *Manager) EnqueueTeardown(ctx context.Context, payload TeardownPayload) error {
	task := asynq.NewTask(TaskTeardown, marshal(payload))
	_, err := m.client.EnqueueContext(ctx, task, m.taskOptions(m.names.Deploy)...)
	return err
}

// EnqueueWebhook schedules a webhook dispatch pass for a build.
func (m *Manager) EnqueueWebhook(ctx context.Context, payload WebhookPayload) error {
	task := asynq.NewTask(TaskWebhook, marshal(payload))
	_, err := m.client.EnqueueContext(ctx, task, m.taskOptions(m.names.Webhook)...)
	return err
}

// HandleFunc registers a handler for taskType on the worker mux. Must be
// called before Run.
func (m *Manager) HandleFunc(taskType string, handler func(context.Context, *asynq.Task) error) {
	m.mux.HandleFunc(taskType, handler)
}

// Run starts the worker server, blocking until ctx is cancelled or an
// unrecoverable server error occurs.
func (m *Manager) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- m.server.Run(m.mux) }()

	select {
	case <-ctx.Done():
		m.Close()
		return nil
	case err := <-errCh:
		return fmt.Errorf("queue server exited: %w", err)
	}
}

// Close shuts down every queue (§4.5 cancellation contract): in-flight jobs
// finish their current step and abort at the next suspension point.
func (m *Manager) Close() {
	m.server.Shutdown()
	_ = m.client.Close()
	m.log.Info("queue manager closed")
}
