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

// Package k8sclient builds the single kubernetes.Interface shared by the
// Image Builder, Helm Releaser and Webhook Dispatcher: in-cluster config
// when running as a pod, falling back to KUBECONFIG for local runs.
package k8sclient

import (
	"fmt"
	"os"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// New resolves a *rest.Config the standard way and builds a clientset from
// it: in-cluster first, then $KUBECONFIG, then ~/.kube/config.
func New() (kubernetes.Interface, error) {
	cfg, err := restConfig()
	if err != nil {
		return nil, fmt.Errorf("k8sclient: %w", err)
	}
	return kubernetes.NewForConfig(cfg)
}

func restConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving default kubeconfig path: %w", err)
		}
		kubeconfig = home + "/.kube/config"
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}
