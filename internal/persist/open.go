package persist

import "fmt"

// Kind selects which Backend Open constructs, mirroring hector's
// pkg/config/koanf_loader.go ConfigType string-enum selection idiom
// (file/consul/etcd/zookeeper) but for a write-capable checkpoint store
// rather than a read-only config source.
type Kind string

const (
	KindMemory    Kind = "memory"
	KindConsul    Kind = "consul"
	KindEtcd      Kind = "etcd"
	KindZookeeper Kind = "zookeeper"
)

// Options configures Open. Address/Endpoints/Path are only consulted for
// the backend Kind selects; an empty Kind (or KindMemory) ignores them
// entirely and always succeeds.
type Options struct {
	Kind      Kind
	Address   string   // consul
	Endpoints []string // etcd, zookeeper
	Path      string   // key/path prefix shared by consul/etcd/zookeeper
}

// Open constructs the Backend named by opts.Kind. Unknown kinds are a
// configuration error, not a silent fallback to memory, so a typo in
// smithers.yaml's persistence.backend surfaces at startup.
func Open(opts Options) (Backend, error) {
	prefix := opts.Path
	if prefix == "" {
		prefix = "/smithers/runs"
	}
	switch opts.Kind {
	case "", KindMemory:
		return NewMemoryBackend(), nil
	case KindConsul:
		return NewConsulBackend(opts.Address, prefix)
	case KindEtcd:
		return NewEtcdBackend(opts.Endpoints, prefix)
	case KindZookeeper:
		return NewZookeeperBackend(opts.Endpoints, prefix)
	default:
		return nil, fmt.Errorf("persist: unknown backend kind %q", opts.Kind)
	}
}
