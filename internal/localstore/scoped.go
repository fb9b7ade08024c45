package localstore

// Scoped namespaces every key of an underlying store, so several clients can
// share one database file.
type Scoped struct {
	inner  Store
	prefix string
}

func NewScoped(inner Store, scope string) *Scoped {
	return &Scoped{inner: inner, prefix: "client:" + scope + ":"}
}

func (s *Scoped) Get(key string) (string, bool, error) {
	return s.inner.Get(s.prefix + key)
}

func (s *Scoped) Set(key, value string) error {
	return s.inner.Set(s.prefix+key, value)
}

func (s *Scoped) Remove(key string) error {
	return s.inner.Remove(s.prefix + key)
}
