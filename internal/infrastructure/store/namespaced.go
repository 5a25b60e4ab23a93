package store

import "context"

// Namespaced prefixes every key with ns + "/" so several sessions can share
// one backend without their slots colliding.
func Namespaced(kv KeyValueStore, ns string) KeyValueStore {
	if ns == "" {
		return kv
	}
	return &namespaced{kv: kv, prefix: ns + "/"}
}

type namespaced struct {
	kv     KeyValueStore
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.kv.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.kv.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.kv.Delete(ctx, n.prefix+key)
}
