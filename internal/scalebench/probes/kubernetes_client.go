package probes

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/armadaproject/scalebench/internal/scalebench/configuration"
)

// KubernetesClients are the Kubernetes API clients used by the k8s probes.
type KubernetesClients struct {
	Typed   kubernetes.Interface
	Dynamic dynamic.Interface
}

// RestConfig returns a client configuration that reaches the Kubernetes API of a Rancher-managed cluster
// through Rancher's authenticating proxy at <url>/k8s/clusters/<id>.
func RestConfig(rancherConfig configuration.RancherConfig, kubernetesConfig configuration.KubernetesConfig) *rest.Config {
	return &rest.Config{
		Host:        strings.TrimRight(rancherConfig.Url, "/") + "/k8s/clusters/" + kubernetesConfig.ClusterId,
		BearerToken: rancherConfig.Token,
		TLSClientConfig: rest.TLSClientConfig{
			Insecure: rancherConfig.InsecureSkipVerify,
		},
		Timeout: rancherConfig.Timeout,
		QPS:     kubernetesConfig.QPS,
		Burst:   kubernetesConfig.Burst,
	}
}

func NewKubernetesClients(config *rest.Config) (*KubernetesClients, error) {
	log.Infof("Using Kubernetes API at %s", config.Host)
	typed, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &KubernetesClients{Typed: typed, Dynamic: dynamicClient}, nil
}
