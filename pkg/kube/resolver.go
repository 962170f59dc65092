// Package kube resolves stored cluster credentials into client-go clients
// and reshapes Kubernetes API objects into dashboard rows.
package kube

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kubetide/console/pkg/metrics"
	"github.com/kubetide/console/pkg/store"
)

// ClientResolver turns a cluster identifier into a live clientset. The
// typed API-group sub-clients (core, apps, networking, storage, discovery)
// hang off the returned interface.
type ClientResolver interface {
	Resolve(cluster string) (kubernetes.Interface, error)
}

// Resolver is the single seam between stored credentials and cluster
// connectivity. Clients are built per call and never cached: each request
// owns its client and discards it afterwards.
type Resolver struct {
	credentials store.CredentialStore
	metrics     *metrics.Metrics
}

// NewResolver creates a resolver over the credential store. metrics may be
// nil.
func NewResolver(credentials store.CredentialStore, m *metrics.Metrics) *Resolver {
	return &Resolver{credentials: credentials, metrics: m}
}

// Resolve looks the credential up by name first, then falls back to the
// display name, and materializes the kubeconfig blob into a clientset. The
// blob never touches disk and no client state outlives the call.
func (r *Resolver) Resolve(cluster string) (kubernetes.Interface, error) {
	creds, err := r.credentials.List()
	if err != nil {
		return nil, err
	}

	var content string
	found := false
	for _, c := range creds {
		if c.Name == cluster {
			content = c.KubeconfigContent
			found = true
			break
		}
	}
	if !found {
		for _, c := range creds {
			if c.DisplayName == cluster {
				content = c.KubeconfigContent
				found = true
				break
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("cluster %s: %w", cluster, store.ErrNotFound)
	}

	config, err := clientcmd.RESTConfigFromKubeConfig([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("invalid kubeconfig for cluster %s: %w", cluster, err)
	}

	// Self-managed fleets terminate TLS with internal CAs; certificate
	// verification is skipped on purpose. Insecure requires that no CA
	// material is set alongside it.
	config.TLSClientConfig = rest.TLSClientConfig{
		Insecure: true,
		CertData: config.TLSClientConfig.CertData,
		CertFile: config.TLSClientConfig.CertFile,
		KeyData:  config.TLSClientConfig.KeyData,
		KeyFile:  config.TLSClientConfig.KeyFile,
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build client for cluster %s: %w", cluster, err)
	}
	if r.metrics != nil {
		r.metrics.ResolvedClients.WithLabelValues(cluster).Inc()
	}
	return clientset, nil
}
