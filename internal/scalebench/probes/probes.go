// Package probes contains the latency probes scheduled by the benchmark.
//
// Every probe times one or more calls against Rancher, either through its v3 management API or through the
// Kubernetes API it proxies, and reports each duration in seconds under a fixed label. A failing call leaves its
// label out of the result; the row key is always set.
package probes

import (
	"context"

	"github.com/pkg/errors"

	"github.com/armadaproject/scalebench/internal/common/benchmarkerrors"
	"github.com/armadaproject/scalebench/internal/scalebench/rancher"
	"github.com/armadaproject/scalebench/internal/scalebench/registry"
)

// Probe names, as accepted in the probes config list.
const (
	RancherClusterList = "rancher_cluster_list"
	RancherProjectList = "rancher_project_list"
	K8sClusterList     = "k8s_cluster_list"
	K8sProjectList     = "k8s_project_list"
	K8sNamespaceList   = "k8s_namespace_list"
	RancherClusterCRUD = "rancher_crud"
)

// Result labels.
const (
	RancherClusterListTime = "rancher_cluster_list_time"
	RancherProjectListTime = "rancher_project_list_time"
	K8sClusterListTime     = "k8s_cluster_list_time"
	K8sProjectListTime     = "k8s_project_list_time"
	K8sNamespaceListTime   = "k8s_namespace_list_time"
	RancherCreateTime      = "rancher_create_time"
	RancherGetTime         = "rancher_get_time"
	RancherUpdateTime      = "rancher_update_time"
	RancherDeleteTime      = "rancher_delete_time"
)

// RancherAPI is the part of the Rancher client the probes use.
type RancherAPI interface {
	ListClusters(ctx context.Context) ([]rancher.Cluster, error)
	ListProjects(ctx context.Context) ([]rancher.Project, error)
	CreateCluster(ctx context.Context, cluster rancher.Cluster) (rancher.Cluster, error)
	GetCluster(ctx context.Context, id string) (rancher.Cluster, error)
	UpdateCluster(ctx context.Context, cluster rancher.Cluster) (rancher.Cluster, error)
	DeleteCluster(ctx context.Context, id string) error
}

// Clients are everything a probe may call.
type Clients struct {
	Rancher    RancherAPI
	Kubernetes *KubernetesClients
}

type factory func(clients Clients) registry.Metric

type entry struct {
	name         string
	needsRancher bool
	needsK8s     bool
	factory      factory
}

// catalogue lists every probe in the order its columns appear in the output.
var catalogue = []entry{
	{name: RancherClusterList, needsRancher: true, factory: newRancherClusterList},
	{name: RancherProjectList, needsRancher: true, factory: newRancherProjectList},
	{name: K8sClusterList, needsK8s: true, factory: newK8sClusterList},
	{name: K8sProjectList, needsK8s: true, factory: newK8sProjectList},
	{name: RancherClusterCRUD, needsRancher: true, factory: newRancherClusterCRUD},
	{name: K8sNamespaceList, needsK8s: true, factory: newK8sNamespaceList},
}

// Names returns the names of all known probes in catalogue order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for _, e := range catalogue {
		names = append(names, e.name)
	}
	return names
}

// Select builds the named probes, in the order given. No names selects every probe in catalogue order.
func Select(names []string, clients Clients) ([]registry.Metric, error) {
	if len(names) == 0 {
		names = Names()
	}
	seen := make(map[string]bool, len(names))
	metrics := make([]registry.Metric, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		e, ok := lookup(name)
		if !ok {
			return nil, errors.WithStack(&benchmarkerrors.ErrInvalidArgument{
				Name:    "Probes",
				Value:   name,
				Message: "unknown probe type",
			})
		}
		if e.needsRancher && clients.Rancher == nil || e.needsK8s && clients.Kubernetes == nil {
			return nil, errors.Errorf("probe %s needs a client that was not configured", name)
		}
		metrics = append(metrics, e.factory(clients))
	}
	return metrics, nil
}

func lookup(name string) (entry, bool) {
	for _, e := range catalogue {
		if e.name == name {
			return e, true
		}
	}
	return entry{}, false
}
