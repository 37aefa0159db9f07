package persistence

import "github.com/toolfabric/registry/pkg/registry"

// FromSnapshot converts the registry core's save-time snapshot into
// the on-disk Document shape. The two types are kept distinct so
// pkg/registry never imports a concrete persistence backend; only this
// adapter, owned by pkg/persistence, knows about both.
func FromSnapshot(s registry.Snapshot) Document {
	return Document{
		LocalTools:    s.LocalTools,
		ExternalTools: s.ExternalTools,
		RemoteTools:   s.RemoteTools,
	}
}

// SaveFunc builds a registry.PersistFunc backed by Save at path,
// the wiring cmd/registryd installs on every Registry it constructs.
func SaveFunc(path string) registry.PersistFunc {
	return func(s registry.Snapshot) error {
		return Save(path, FromSnapshot(s))
	}
}
