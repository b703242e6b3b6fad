package probes

import (
	"context"

	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/armadaproject/scalebench/internal/scalebench/registry"
)

// Rancher's management resources, served by the local cluster's Kubernetes API.
var (
	ClustersResource = schema.GroupVersionResource{Group: "management.cattle.io", Version: "v3", Resource: "clusters"}
	ProjectsResource = schema.GroupVersionResource{Group: "management.cattle.io", Version: "v3", Resource: "projects"}
)

func newK8sClusterList(clients Clients) registry.Metric {
	return registry.Metric{
		Name:   K8sClusterList,
		Labels: []string{K8sClusterListTime},
		Probe: func(ctx context.Context, iteration int) (registry.Result, error) {
			return timed(iteration, K8sClusterListTime, func() error {
				_, err := clients.Kubernetes.Dynamic.Resource(ClustersResource).List(ctx, metav1.ListOptions{})
				return errors.WithMessage(err, "listing management clusters")
			})
		},
	}
}

// Projects live in the namespace of the cluster they belong to; this lists them across all namespaces.
func newK8sProjectList(clients Clients) registry.Metric {
	return registry.Metric{
		Name:   K8sProjectList,
		Labels: []string{K8sProjectListTime},
		Probe: func(ctx context.Context, iteration int) (registry.Result, error) {
			return timed(iteration, K8sProjectListTime, func() error {
				_, err := clients.Kubernetes.Dynamic.
					Resource(ProjectsResource).
					Namespace(metav1.NamespaceAll).
					List(ctx, metav1.ListOptions{})
				return errors.WithMessage(err, "listing management projects")
			})
		},
	}
}

func newK8sNamespaceList(clients Clients) registry.Metric {
	return registry.Metric{
		Name:   K8sNamespaceList,
		Labels: []string{K8sNamespaceListTime},
		Probe: func(ctx context.Context, iteration int) (registry.Result, error) {
			return timed(iteration, K8sNamespaceListTime, func() error {
				_, err := clients.Kubernetes.Typed.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
				return errors.WithMessage(err, "listing namespaces")
			})
		},
	}
}
