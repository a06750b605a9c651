package datasource

import (
	"context"
	"errors"
)

// ErrAPI wraps every failed cluster call
var ErrAPI = errors.New("cluster api failure")

// ClusterSource lists the objects the console drills into.
// Every record is a plain name; failures wrap ErrAPI.
type ClusterSource interface {
	// ListNamespaces returns namespace names in API order
	ListNamespaces(ctx context.Context) ([]string, error)

	// ListPods returns pod names of a namespace in API order
	ListPods(ctx context.Context, namespace string) ([]string, error)

	// GetPodContainers returns the container names of a pod in spec order
	GetPodContainers(ctx context.Context, namespace, pod string) ([]string, error)

	// GetPodLogs returns the last tailLines log lines of a container
	GetPodLogs(ctx context.Context, namespace, pod, container string, tailLines int64) ([]string, error)

	// Name returns the data source name (for logging/debugging)
	Name() string

	// Close cleans up resources
	Close() error
}
