package cache

// DefaultTable is the logical table every synchronizer entry lives in
const DefaultTable = "kv_cache"

// Fixed keys
const (
	NamespacesKey    = "all_namespaces"
	LastRefreshedKey = "last_refreshed_at"
)

// PodsKey is the key of the pod name list of a namespace
func PodsKey(namespace string) string {
	return "pods_" + namespace
}

// ContainersKey is the key of the container name list of a pod
func ContainersKey(namespace, pod string) string {
	return "cont_" + namespace + "_" + pod
}

// LogsKey is the key of the cached log tail of a container
func LogsKey(namespace, pod, container string) string {
	return "logs_" + namespace + "_" + pod + "_" + container
}
