package probes

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/scalebench/internal/scalebench/rancher"
	"github.com/armadaproject/scalebench/internal/scalebench/registry"
)

// Prefix of the names of clusters created by the CRUD probe.
const ClusterNamePrefix = "scalebench-"

func newRancherClusterList(clients Clients) registry.Metric {
	return registry.Metric{
		Name:   RancherClusterList,
		Labels: []string{RancherClusterListTime},
		Probe: func(ctx context.Context, iteration int) (registry.Result, error) {
			return timed(iteration, RancherClusterListTime, func() error {
				_, err := clients.Rancher.ListClusters(ctx)
				return err
			})
		},
	}
}

func newRancherProjectList(clients Clients) registry.Metric {
	return registry.Metric{
		Name:   RancherProjectList,
		Labels: []string{RancherProjectListTime},
		Probe: func(ctx context.Context, iteration int) (registry.Result, error) {
			return timed(iteration, RancherProjectListTime, func() error {
				_, err := clients.Rancher.ListProjects(ctx)
				return err
			})
		},
	}
}

// newRancherClusterCRUD creates, reads, updates and deletes a placeholder cluster, timing each call.
// If a step fails, the cluster is still deleted if it was created.
func newRancherClusterCRUD(clients Clients) registry.Metric {
	return registry.Metric{
		Name:   RancherClusterCRUD,
		Labels: []string{RancherCreateTime, RancherGetTime, RancherUpdateTime, RancherDeleteTime},
		Probe: func(ctx context.Context, iteration int) (registry.Result, error) {
			return clusterCRUD(ctx, clients.Rancher, iteration)
		},
	}
}

func clusterCRUD(ctx context.Context, api RancherAPI, iteration int) (registry.Result, error) {
	result := registry.NewResult(iteration)

	start := time.Now()
	cluster, err := api.CreateCluster(ctx, rancher.Cluster{
		Name:        ClusterNamePrefix + uuid.New().String(),
		Description: "created by scalebench",
		Labels:      map[string]string{"scalebench/iteration": strconv.Itoa(iteration)},
	})
	if err != nil {
		return result, errors.WithMessage(err, "creating cluster")
	}
	result = result.Set(RancherCreateTime, elapsedSeconds(start))

	start = time.Now()
	fetched, err := api.GetCluster(ctx, cluster.ID)
	if err != nil {
		return result, deleteAfterFailure(api, cluster.ID, errors.WithMessagef(err, "getting cluster %s", cluster.ID))
	}
	result = result.Set(RancherGetTime, elapsedSeconds(start))

	fetched.Description = "updated by scalebench"
	start = time.Now()
	if _, err := api.UpdateCluster(ctx, fetched); err != nil {
		return result, deleteAfterFailure(api, cluster.ID, errors.WithMessagef(err, "updating cluster %s", cluster.ID))
	}
	result = result.Set(RancherUpdateTime, elapsedSeconds(start))

	start = time.Now()
	if err := api.DeleteCluster(ctx, cluster.ID); err != nil {
		return result, errors.WithMessagef(err, "deleting cluster %s", cluster.ID)
	}
	return result.Set(RancherDeleteTime, elapsedSeconds(start)), nil
}

// deleteAfterFailure removes a cluster left behind by a failed CRUD cycle.
// It uses a fresh context so clusters are cleaned up even when the run is being cancelled.
func deleteAfterFailure(api RancherAPI, id string, cause error) error {
	var result *multierror.Error
	result = multierror.Append(result, cause)
	if err := api.DeleteCluster(context.Background(), id); err != nil && !rancher.IsNotFound(err) {
		result = multierror.Append(result, errors.WithMessagef(err, "cleaning up cluster %s", id))
	}
	return result.ErrorOrNil()
}

// timed runs call and reports its duration under label. On failure the label is left unset.
func timed(iteration int, label string, call func() error) (registry.Result, error) {
	result := registry.NewResult(iteration)
	start := time.Now()
	if err := call(); err != nil {
		return result, err
	}
	return result.Set(label, elapsedSeconds(start)), nil
}

// elapsedSeconds is the unit every probe reports latencies in.
func elapsedSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}
