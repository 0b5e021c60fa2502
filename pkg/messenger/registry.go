package messenger

import (
	"fmt"

	"github.com/blastkit/blast/pkg/models"
)

// Registry holds one adapter per network. Build it once at startup; it is
// read-only afterwards.
type Registry struct {
	adapters map[models.NetworkType]Messenger
	order    []models.NetworkType
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[models.NetworkType]Messenger)}
}

// Register adds an adapter. Registering two adapters for the same network
// panics; that is a wiring bug.
func (r *Registry) Register(m Messenger) {
	network := m.Network()
	if !network.IsValid() {
		panic(fmt.Sprintf("messenger: unknown network %q", network))
	}
	if _, exists := r.adapters[network]; exists {
		panic(fmt.Sprintf("messenger: duplicate adapter for network %q", network))
	}
	r.adapters[network] = m
	r.order = append(r.order, network)
}

// Get returns the adapter for the network.
func (r *Registry) Get(network models.NetworkType) (Messenger, error) {
	m, ok := r.adapters[network]
	if !ok {
		return nil, fmt.Errorf("no messenger registered for network %q", network)
	}
	return m, nil
}

// ForSession returns the session's network adapter with the session bound
// onto it, ready to send.
func (r *Registry) ForSession(session *models.Session) (Messenger, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	m, err := r.Get(session.SessionType)
	if err != nil {
		return nil, err
	}
	if err := m.SetSession(session); err != nil {
		return nil, err
	}
	return m, nil
}

// DescribeAll returns the descriptors of every registered adapter, in
// registration order.
func (r *Registry) DescribeAll() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, network := range r.order {
		out = append(out, Describe(r.adapters[network]))
	}
	return out
}
