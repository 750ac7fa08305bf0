package channel

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrDuplicateName is returned when two channels share the same name.
var ErrDuplicateName = errors.New("duplicate channel name")

// Resolver resolves the candidate channels for a channel hash.
type Resolver interface {
	Candidates(hash uint8) []Channel
}

// Set holds an immutable set of channels indexed by name and hash.
type Set struct {
	channels []Channel
	byName   map[string]int
	byHash   map[uint8][]int
}

// NewSet returns a Set for the given channels. The order of the channels
// is kept as candidate order.
func NewSet(channels ...Channel) (*Set, error) {
	s := Set{
		byName: make(map[string]int),
		byHash: make(map[uint8][]int),
	}

	for _, c := range channels {
		if _, ok := s.byName[c.Name]; ok {
			return nil, errors.Wrap(ErrDuplicateName, c.Name)
		}

		i := len(s.channels)
		s.channels = append(s.channels, c)
		s.byName[c.Name] = i
		s.byHash[c.Hash] = append(s.byHash[c.Hash], i)
	}

	return &s, nil
}

// Candidates returns the channels matching the given hash.
func (s *Set) Candidates(hash uint8) []Channel {
	idx := s.byHash[hash]
	out := make([]Channel, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.channels[i])
	}
	return out
}

// Get returns the channel by name.
func (s *Set) Get(name string) (Channel, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Channel{}, false
	}
	return s.channels[i], true
}

// All returns all channels.
func (s *Set) All() []Channel {
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// Names returns the sorted channel names.
func (s *Set) Names() []string {
	var out []string
	for name := range s.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registry holds the active channel set. The set can be replaced at any
// time (e.g. after reloading the channels from storage).
type Registry struct {
	mu  sync.RWMutex
	set *Set
}

// NewRegistry returns a Registry for the given set.
func NewRegistry(s *Set) *Registry {
	if s == nil {
		s, _ = NewSet()
	}
	return &Registry{set: s}
}

// Replace replaces the active set.
func (r *Registry) Replace(s *Set) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.set = s
}

// Set returns the active set.
func (r *Registry) Set() *Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set
}

// Candidates implements Resolver.
func (r *Registry) Candidates(hash uint8) []Channel {
	return r.Set().Candidates(hash)
}

// Get returns the channel by name.
func (r *Registry) Get(name string) (Channel, bool) {
	return r.Set().Get(name)
}
