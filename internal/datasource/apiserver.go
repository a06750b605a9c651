package datasource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// APIServerClient implements ClusterSource using the Kubernetes API Server
type APIServerClient struct {
	clientset kubernetes.Interface
	host      string
	logger    *zap.Logger
}

// NewAPIServerClient creates a new API Server client.
// timeout is the per-request client timeout, 0 keeps the client-go default.
func NewAPIServerClient(kubeconfig, kubeContext string, timeout time.Duration, logger *zap.Logger) (*APIServerClient, error) {
	config, err := loadRESTConfig(kubeconfig, kubeContext)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		config.Timeout = timeout
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	logger.Info("API Server client initialized",
		zap.String("host", config.Host),
		zap.String("context", kubeContext),
		zap.Duration("timeout", timeout),
	)

	return &APIServerClient{
		clientset: clientset,
		host:      config.Host,
		logger:    logger,
	}, nil
}

// NewAPIServerClientFromClientset wraps an existing clientset
func NewAPIServerClientFromClientset(clientset kubernetes.Interface, logger *zap.Logger) *APIServerClient {
	return &APIServerClient{
		clientset: clientset,
		logger:    logger,
	}
}

func loadRESTConfig(kubeconfig, kubeContext string) (*rest.Config, error) {
	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}

	if kubeconfig == "" {
		// Try in-cluster config first
		if config, err := rest.InClusterConfig(); err == nil {
			return config, nil
		}
		config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			clientcmd.NewDefaultClientConfigLoadingRules(),
			overrides,
		).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
		}
		return config, nil
	}

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig},
		overrides,
	).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig from %s: %w", kubeconfig, err)
	}
	return config, nil
}

// Clientset exposes the underlying clientset for access reviews
func (c *APIServerClient) Clientset() kubernetes.Interface {
	return c.clientset
}

// ListNamespaces retrieves all namespace names
func (c *APIServerClient) ListNamespaces(ctx context.Context) ([]string, error) {
	c.logger.Debug("Fetching namespaces from API Server")

	list, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: list namespaces: %v", ErrAPI, err)
	}

	names := make([]string, 0, len(list.Items))
	for i := range list.Items {
		names = append(names, list.Items[i].Name)
	}

	c.logger.Debug("Namespaces fetched successfully", zap.Int("count", len(names)))
	return names, nil
}

// ListPods retrieves the pod names of a namespace
func (c *APIServerClient) ListPods(ctx context.Context, namespace string) ([]string, error) {
	c.logger.Debug("Fetching pods from API Server", zap.String("namespace", namespace))

	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: list pods in %s: %v", ErrAPI, namespace, err)
	}

	names := make([]string, 0, len(list.Items))
	for i := range list.Items {
		names = append(names, list.Items[i].Name)
	}
	return names, nil
}

// GetPodContainers retrieves the container names of a pod, init containers excluded
func (c *APIServerClient) GetPodContainers(ctx context.Context, namespace, pod string) ([]string, error) {
	p, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, pod, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get pod %s/%s: %v", ErrAPI, namespace, pod, err)
	}

	names := make([]string, 0, len(p.Spec.Containers))
	for _, ctr := range p.Spec.Containers {
		names = append(names, ctr.Name)
	}
	return names, nil
}

// GetPodLogs retrieves the last tailLines log lines of a container
func (c *APIServerClient) GetPodLogs(ctx context.Context, namespace, pod, container string, tailLines int64) ([]string, error) {
	c.logger.Debug("Fetching pod logs",
		zap.String("namespace", namespace),
		zap.String("pod", pod),
		zap.String("container", container),
		zap.Int64("tailLines", tailLines),
	)

	opts := &corev1.PodLogOptions{Container: container}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}

	stream, err := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, opts).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: log stream %s/%s/%s: %v", ErrAPI, namespace, pod, container, err)
	}
	defer stream.Close()

	lines, err := readLogLines(stream, maxLogLineBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: read logs %s/%s/%s: %v", ErrAPI, namespace, pod, container, err)
	}
	return lines, nil
}

// maxLogLineBytes caps a single log line, the rest of the line is dropped
const maxLogLineBytes = 1024 * 1024

// readLogLines splits r into lines, truncating any line longer than maxLine bytes
func readLogLines(r io.Reader, maxLine int) ([]string, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	lines := []string{}
	var line []byte
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}

		if room := maxLine - len(line); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			line = append(line, chunk...)
		}
		if isPrefix {
			continue
		}

		lines = append(lines, strings.TrimRight(string(line), "\r"))
		line = line[:0]
	}
}

// Name returns the data source name
func (c *APIServerClient) Name() string {
	return "APIServer"
}

// Close cleans up resources
func (c *APIServerClient) Close() error {
	c.logger.Info("Closing API Server client", zap.String("host", c.host))
	return nil
}
