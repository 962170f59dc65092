package kube

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/kubetide/console/pkg/store"
)

// Workload, service, config and storage type discriminators accepted by the
// query methods. An empty type means all.
const (
	WorkloadDeployment  = "deployment"
	WorkloadStatefulSet = "statefulset"
	WorkloadDaemonSet   = "daemonset"

	ServiceTypeService = "service"
	ServiceTypeIngress = "ingress"

	ConfigTypeConfigMap = "configmap"
	ConfigTypeSecret    = "secret"

	StorageTypePVC = "pvc"
	StorageTypePV  = "pv"
)

// LabelConfig is the traffic-toggle label contract: Key flipped between
// OnlineValue (taking traffic) and DoneValue (removed from load). Injected
// configuration, never hard-coded here.
type LabelConfig struct {
	Key         string
	OnlineValue string
	DoneValue   string
}

// Service translates dashboard requests into calls against a resolved
// cluster client and shapes the responses into display rows. Every method
// resolves its own client; nothing is cached between requests.
type Service struct {
	resolver ClientResolver
	labels   LabelConfig
}

// NewService creates the resource service.
func NewService(resolver ClientResolver, labels LabelConfig) *Service {
	return &Service{resolver: resolver, labels: labels}
}

// NodeInfo is one node row.
type NodeInfo struct {
	Name           string `json:"name"`
	Status         string `json:"status"`
	Roles          string `json:"roles"`
	InternalIP     string `json:"internal_ip,omitempty"`
	KubeletVersion string `json:"kubelet_version,omitempty"`
	OSImage        string `json:"os_image,omitempty"`
	CPU            string `json:"cpu,omitempty"`
	Memory         string `json:"memory,omitempty"`
	Age            string `json:"age,omitempty"`
}

// WorkloadInfo is one workload row.
type WorkloadInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Replicas int32  `json:"replicas"`
}

// PodInfo is one pod row. HasRemoveLoad mirrors the traffic-toggle label:
// true when the pod has been removed from load.
type PodInfo struct {
	Name          string            `json:"name"`
	Status        string            `json:"status"`
	NodeIP        string            `json:"node_ip,omitempty"`
	PodIP         string            `json:"pod_ip,omitempty"`
	CreatedTime   string            `json:"created_time"`
	RunningTime   string            `json:"running_time"`
	HasRemoveLoad bool              `json:"has_removeload"`
	Labels        map[string]string `json:"labels"`
}

// ServiceInfo is one service or ingress row.
type ServiceInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	ServiceType string   `json:"service_type,omitempty"`
	ClusterIP   string   `json:"cluster_ip,omitempty"`
	Ports       []string `json:"ports,omitempty"`
	Hosts       []string `json:"hosts,omitempty"`
	Age         string   `json:"age,omitempty"`
}

// ConfigInfo is one configmap or secret row. Only key names are listed;
// secret values never leave the cluster through this view.
type ConfigInfo struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	SecretType string   `json:"secret_type,omitempty"`
	Keys       []string `json:"keys"`
	Age        string   `json:"age,omitempty"`
}

// StorageInfo is one PVC or PV row.
type StorageInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Status       string `json:"status,omitempty"`
	Capacity     string `json:"capacity,omitempty"`
	StorageClass string `json:"storage_class,omitempty"`
	Age          string `json:"age,omitempty"`
}

// Namespaces returns the namespace names of one cluster.
func (s *Service) Namespaces(ctx context.Context, cluster string) ([]string, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}
	list, err := client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		names = append(names, ns.Name)
	}
	return names, nil
}

// ServerVersion returns the cluster's reported git version.
func (s *Service) ServerVersion(cluster string) (string, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return "", err
	}
	info, err := client.Discovery().ServerVersion()
	if err != nil {
		return "", err
	}
	return info.GitVersion, nil
}

// Nodes returns the node rows of one cluster.
func (s *Service) Nodes(ctx context.Context, cluster string) ([]NodeInfo, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}
	list, err := client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}

	nodes := make([]NodeInfo, 0, len(list.Items))
	for _, node := range list.Items {
		info := NodeInfo{
			Name:           node.Name,
			Status:         nodeStatus(node),
			Roles:          nodeRoles(node),
			KubeletVersion: node.Status.NodeInfo.KubeletVersion,
			OSImage:        node.Status.NodeInfo.OSImage,
			Age:            formatAge(node.CreationTimestamp.Time),
		}
		for _, addr := range node.Status.Addresses {
			if addr.Type == corev1.NodeInternalIP {
				info.InternalIP = addr.Address
				break
			}
		}
		if cpu, ok := node.Status.Allocatable[corev1.ResourceCPU]; ok {
			info.CPU = cpu.String()
		}
		if mem, ok := node.Status.Allocatable[corev1.ResourceMemory]; ok {
			info.Memory = mem.String()
		}
		nodes = append(nodes, info)
	}
	return nodes, nil
}

func nodeStatus(node corev1.Node) string {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			if cond.Status == corev1.ConditionTrue {
				return "Ready"
			}
			return "NotReady"
		}
	}
	return "Unknown"
}

func nodeRoles(node corev1.Node) string {
	roles := []string{}
	for label := range node.Labels {
		if role, ok := strings.CutPrefix(label, "node-role.kubernetes.io/"); ok && role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return "<none>"
	}
	sort.Strings(roles)
	return strings.Join(roles, ",")
}

// Workloads returns deployment, statefulset and daemonset rows of one
// namespace, optionally filtered to one workload type.
func (s *Service) Workloads(ctx context.Context, cluster, namespace, workloadType string) ([]WorkloadInfo, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}

	workloads := []WorkloadInfo{}

	if workloadType == "" || workloadType == WorkloadDeployment {
		list, err := client.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, d := range list.Items {
			workloads = append(workloads, WorkloadInfo{Name: d.Name, Type: WorkloadDeployment, Replicas: d.Status.AvailableReplicas})
		}
	}
	if workloadType == "" || workloadType == WorkloadStatefulSet {
		list, err := client.AppsV1().StatefulSets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, sts := range list.Items {
			workloads = append(workloads, WorkloadInfo{Name: sts.Name, Type: WorkloadStatefulSet, Replicas: sts.Status.ReadyReplicas})
		}
	}
	if workloadType == "" || workloadType == WorkloadDaemonSet {
		list, err := client.AppsV1().DaemonSets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, ds := range list.Items {
			workloads = append(workloads, WorkloadInfo{Name: ds.Name, Type: WorkloadDaemonSet, Replicas: ds.Status.NumberReady})
		}
	}
	return workloads, nil
}

// Pods returns all pod rows of one namespace.
func (s *Service) Pods(ctx context.Context, cluster, namespace string) ([]PodInfo, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}
	list, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return s.podInfos(ctx, client, list.Items), nil
}

// PodsForWorkload returns the pod rows selected by one workload's label
// selector. A workload without a selector has no pods to show.
func (s *Service) PodsForWorkload(ctx context.Context, cluster, namespace, workloadType, name string) ([]PodInfo, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}

	selector, err := s.workloadSelector(ctx, client, namespace, workloadType, name)
	if err != nil {
		return nil, err
	}
	if selector == "" {
		return []PodInfo{}, nil
	}

	list, err := client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, err
	}
	return s.podInfos(ctx, client, list.Items), nil
}

func (s *Service) workloadSelector(ctx context.Context, client kubernetes.Interface, namespace, workloadType, name string) (string, error) {
	var selector *metav1.LabelSelector
	switch workloadType {
	case WorkloadDeployment:
		d, err := client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		selector = d.Spec.Selector
	case WorkloadStatefulSet:
		sts, err := client.AppsV1().StatefulSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		selector = sts.Spec.Selector
	case WorkloadDaemonSet:
		ds, err := client.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return "", err
		}
		selector = ds.Spec.Selector
	default:
		return "", fmt.Errorf("workload type %s: %w", workloadType, store.ErrNotFound)
	}
	if selector == nil {
		return "", nil
	}
	return metav1.FormatLabelSelector(selector), nil
}

func (s *Service) podInfos(ctx context.Context, client kubernetes.Interface, pods []corev1.Pod) []PodInfo {
	// Node InternalIPs are looked up once per node, not once per pod.
	nodeIPs := map[string]string{}

	infos := make([]PodInfo, 0, len(pods))
	for _, pod := range pods {
		nodeIP := pod.Spec.NodeName
		if pod.Spec.NodeName != "" {
			ip, cached := nodeIPs[pod.Spec.NodeName]
			if !cached {
				node, err := client.CoreV1().Nodes().Get(ctx, pod.Spec.NodeName, metav1.GetOptions{})
				if err != nil {
					log.Printf("[kube] failed to read node %s: %v", pod.Spec.NodeName, err)
				} else {
					for _, addr := range node.Status.Addresses {
						if addr.Type == corev1.NodeInternalIP {
							ip = addr.Address
							break
						}
					}
				}
				nodeIPs[pod.Spec.NodeName] = ip
			}
			if ip != "" {
				nodeIP = ip
			}
		}

		created := "-"
		if !pod.CreationTimestamp.IsZero() {
			created = pod.CreationTimestamp.Local().Format("2006-01-02 15:04:05")
		}
		running := "-"
		if pod.Status.StartTime != nil {
			running = formatRunningTime(time.Since(pod.Status.StartTime.Time))
		}

		labels := pod.Labels
		if labels == nil {
			labels = map[string]string{}
		}

		infos = append(infos, PodInfo{
			Name:          pod.Name,
			Status:        string(pod.Status.Phase),
			NodeIP:        nodeIP,
			PodIP:         pod.Status.PodIP,
			CreatedTime:   created,
			RunningTime:   running,
			HasRemoveLoad: labels[s.labels.Key] == s.labels.DoneValue,
			Labels:        labels,
		})
	}
	return infos
}

// Services returns service and ingress rows of one namespace, optionally
// filtered by type.
func (s *Service) Services(ctx context.Context, cluster, namespace, serviceType string) ([]ServiceInfo, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}

	services := []ServiceInfo{}

	if serviceType == "" || serviceType == ServiceTypeService {
		list, err := client.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, svc := range list.Items {
			ports := make([]string, 0, len(svc.Spec.Ports))
			for _, p := range svc.Spec.Ports {
				ports = append(ports, fmt.Sprintf("%d/%s", p.Port, p.Protocol))
			}
			services = append(services, ServiceInfo{
				Name:        svc.Name,
				Type:        ServiceTypeService,
				ServiceType: string(svc.Spec.Type),
				ClusterIP:   svc.Spec.ClusterIP,
				Ports:       ports,
				Age:         formatAge(svc.CreationTimestamp.Time),
			})
		}
	}
	if serviceType == "" || serviceType == ServiceTypeIngress {
		list, err := client.NetworkingV1().Ingresses(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, ing := range list.Items {
			hosts := make([]string, 0, len(ing.Spec.Rules))
			for _, rule := range ing.Spec.Rules {
				if rule.Host != "" {
					hosts = append(hosts, rule.Host)
				}
			}
			services = append(services, ServiceInfo{
				Name:  ing.Name,
				Type:  ServiceTypeIngress,
				Hosts: hosts,
				Age:   formatAge(ing.CreationTimestamp.Time),
			})
		}
	}
	return services, nil
}

// Configs returns configmap and secret rows of one namespace, optionally
// filtered by type.
func (s *Service) Configs(ctx context.Context, cluster, namespace, configType string) ([]ConfigInfo, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}

	configs := []ConfigInfo{}

	if configType == "" || configType == ConfigTypeConfigMap {
		list, err := client.CoreV1().ConfigMaps(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, cm := range list.Items {
			configs = append(configs, ConfigInfo{
				Name: cm.Name,
				Type: ConfigTypeConfigMap,
				Keys: sortedKeys(cm.Data),
				Age:  formatAge(cm.CreationTimestamp.Time),
			})
		}
	}
	if configType == "" || configType == ConfigTypeSecret {
		list, err := client.CoreV1().Secrets(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, sec := range list.Items {
			configs = append(configs, ConfigInfo{
				Name:       sec.Name,
				Type:       ConfigTypeSecret,
				SecretType: string(sec.Type),
				Keys:       sortedKeys(sec.Data),
				Age:        formatAge(sec.CreationTimestamp.Time),
			})
		}
	}
	return configs, nil
}

// Storage returns PVC rows of one namespace and, when requested, the
// cluster-scoped PV rows.
func (s *Service) Storage(ctx context.Context, cluster, namespace, storageType string) ([]StorageInfo, error) {
	client, err := s.resolver.Resolve(cluster)
	if err != nil {
		return nil, err
	}

	storage := []StorageInfo{}

	if storageType == "" || storageType == StorageTypePVC {
		list, err := client.CoreV1().PersistentVolumeClaims(namespace).List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, pvc := range list.Items {
			info := StorageInfo{
				Name:   pvc.Name,
				Type:   StorageTypePVC,
				Status: string(pvc.Status.Phase),
				Age:    formatAge(pvc.CreationTimestamp.Time),
			}
			if capacity, ok := pvc.Status.Capacity[corev1.ResourceStorage]; ok {
				info.Capacity = capacity.String()
			}
			if pvc.Spec.StorageClassName != nil {
				info.StorageClass = *pvc.Spec.StorageClassName
			}
			storage = append(storage, info)
		}
	}
	if storageType == "" || storageType == StorageTypePV {
		list, err := client.CoreV1().PersistentVolumes().List(ctx, metav1.ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, pv := range list.Items {
			info := StorageInfo{
				Name:         pv.Name,
				Type:         StorageTypePV,
				Status:       string(pv.Status.Phase),
				StorageClass: pv.Spec.StorageClassName,
				Age:          formatAge(pv.CreationTimestamp.Time),
			}
			if capacity, ok := pv.Spec.Capacity[corev1.ResourceStorage]; ok {
				info.Capacity = capacity.String()
			}
			storage = append(storage, info)
		}
	}
	return storage, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatAge formats a creation time as a human-readable age string.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	duration := time.Since(t)
	if duration.Hours() > 24 {
		return fmt.Sprintf("%dd", int(duration.Hours()/24))
	} else if duration.Hours() > 1 {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	return fmt.Sprintf("%dm", int(duration.Minutes()))
}

func formatRunningTime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}
