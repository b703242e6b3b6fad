package rancher

type clusterCollection struct {
	Data []Cluster `json:"data"`
}

type projectCollection struct {
	Data []Project `json:"data"`
}

// Cluster is the subset of the v3 cluster resource the benchmark reads and writes.
type Cluster struct {
	ID          string            `json:"id,omitempty"`
	Type        string            `json:"type,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	State       string            `json:"state,omitempty"`
}

type Project struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	ClusterID   string `json:"clusterId,omitempty"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
}
