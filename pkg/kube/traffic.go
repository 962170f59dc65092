package kube

import (
	"context"
	"encoding/json"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// RemoveLoad flips the traffic label to the done value, taking the pod out
// of load without touching the workload that owns it.
func (s *Service) RemoveLoad(ctx context.Context, cluster, namespace, pod string) error {
	return s.patchLoadLabel(ctx, cluster, namespace, pod, s.labels.DoneValue)
}

// RestoreTraffic flips the traffic label back to the online value.
func (s *Service) RestoreTraffic(ctx context.Context, cluster, namespace, pod string) error {
	return s.patchLoadLabel(ctx, cluster, namespace, pod, s.labels.OnlineValue)
}

func (s *Service) patchLoadLabel(ctx context.Context, cluster, namespace, pod, value string) error {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return err
	}

	patch, err := json.Marshal(map[string]any{
		"metadata": map[string]any{
			"labels": map[string]string{s.labels.Key: value},
		},
	})
	if err != nil {
		return err
	}

	_, err = client.CoreV1().Pods(namespace).Patch(ctx, pod, types.StrategicMergePatchType, patch, metav1.PatchOptions{})
	return err
}
