package whatsapp

import "sync"

// Registry is the concurrent map of live instances keyed by instance key.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

func (r *Registry) Put(ins *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[ins.Key] = ins
}

func (r *Registry) Get(key string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ins, ok := r.instances[key]
	return ins, ok
}

func (r *Registry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, key)
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.instances))
	for key := range r.instances {
		keys = append(keys, key)
	}
	return keys
}

func (r *Registry) All() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Instance, 0, len(r.instances))
	for _, ins := range r.instances {
		all = append(all, ins)
	}
	return all
}
