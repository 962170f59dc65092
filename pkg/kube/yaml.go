package kube

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"gopkg.in/yaml.v3"

	"github.com/kubetide/console/pkg/store"
)

// WorkloadYAML returns the YAML view of one workload object.
func (s *Service) WorkloadYAML(ctx context.Context, cluster, namespace, workloadType, name string) (string, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return "", err
	}

	switch workloadType {
	case WorkloadDeployment:
		obj, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "apps/v1", "Deployment")
	case WorkloadStatefulSet:
		obj, err := client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "apps/v1", "StatefulSet")
	case WorkloadDaemonSet:
		obj, err := client.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "apps/v1", "DaemonSet")
	}
	return "", fmt.Errorf("workload type %s: %w", workloadType, store.ErrNotFound)
}

// ServiceYAML returns the YAML view of one service or ingress.
func (s *Service) ServiceYAML(ctx context.Context, cluster, namespace, serviceType, name string) (string, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return "", err
	}

	switch serviceType {
	case ServiceTypeService:
		obj, err := client.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "v1", "Service")
	case ServiceTypeIngress:
		obj, err := client.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "networking.k8s.io/v1", "Ingress")
	}
	return "", fmt.Errorf("service type %s: %w", serviceType, store.ErrNotFound)
}

// ConfigYAML returns the YAML view of one configmap or secret.
func (s *Service) ConfigYAML(ctx context.Context, cluster, namespace, configType, name string) (string, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return "", err
	}

	switch configType {
	case ConfigTypeConfigMap:
		obj, err := client.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "v1", "ConfigMap")
	case ConfigTypeSecret:
		obj, err := client.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "v1", "Secret")
	}
	return "", fmt.Errorf("config type %s: %w", configType, store.ErrNotFound)
}

// StorageYAML returns the YAML view of one PVC or PV.
func (s *Service) StorageYAML(ctx context.Context, cluster, namespace, storageType, name string) (string, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return "", err
	}

	switch storageType {
	case StorageTypePVC:
		obj, err := client.CoreV1().PersistentVolumeClaims(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "v1", "PersistentVolumeClaim")
	case StorageTypePV:
		obj, err := client.CoreV1().PersistentVolumes().Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		return renderYAML(obj, "v1", "PersistentVolume")
	}
	return "", fmt.Errorf("storage type %s: %w", storageType, store.ErrNotFound)
}

// renderYAML converts a typed object to YAML. Typed clientset responses
// carry no TypeMeta, so apiVersion and kind are filled in here; the noisy
// managedFields block is dropped from the view.
func renderYAML(obj runtime.Object, apiVersion, kind string) (string, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return "", fmt.Errorf("failed to convert object: %w", err)
	}
	content["apiVersion"] = apiVersion
	content["kind"] = kind
	if meta, ok := content["metadata"].(map[string]interface{}); ok {
		delete(meta, "managedFields")
	}

	out, err := yaml.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to render YAML: %w", err)
	}
	return string(out), nil
}
