package ws

import "sync"

// Meta es la información mínima de una sesión activa, para reporte de salud.
type Meta struct {
	UserID   string
	Language string
}

// Registry mapea sesiones activas a su metadata. Se inserta al autenticar y
// se remueve al cerrar; seguro para sesiones concurrentes.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Meta
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Meta)}
}

func (r *Registry) Add(id string, meta Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = meta
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
