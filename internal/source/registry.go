package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/fedsearch/internal/performer"
)

// Settings carries the values some sources need when they are built.
type Settings struct {
	// SoundcloudClientID is appended to SoundCloud API requests.
	SoundcloudClientID string

	// Now is the clock used for age filters. Nil means time.Now.
	Now func() time.Time
}

// Registry holds sources by name in registration order.
type Registry struct {
	byName map[string]performer.Source
	order  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]performer.Source)}
}

// Default returns a registry with every built-in source.
func Default(s Settings) *Registry {
	r := NewRegistry()
	for _, src := range []performer.Source{
		NewBitSnoop(),
		NewMonova(s.Now),
		NewTorLock(),
		NewKAT(),
		NewExtratorrent(),
		NewSoundcloud(s.SoundcloudClientID),
	} {
		if err := r.Register(src); err != nil {
			panic(err) // built-in grammars are fixed at compile time
		}
	}
	return r
}

// Register validates src and adds it.
func (r *Registry) Register(src performer.Source) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if _, ok := r.byName[src.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name)
	}
	r.byName[src.Name] = src
	r.order = append(r.order, src.Name)
	return nil
}

// Replace swaps the registered source of the same name, for example after
// applying configuration overrides. Unknown names are ignored.
func (r *Registry) Replace(src performer.Source) {
	if _, ok := r.byName[src.Name]; ok {
		r.byName[src.Name] = src
	}
}

// Lookup returns the source called name.
func (r *Registry) Lookup(name string) (performer.Source, bool) {
	src, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return src, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every registered source in registration order.
func (r *Registry) All() []performer.Source {
	out := make([]performer.Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Select returns the named sources in the order given. An empty list
// selects every source. Duplicates are returned once.
func (r *Registry) Select(names []string) ([]performer.Source, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]performer.Source, 0, len(names))
	for _, name := range names {
		src, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSource, name, strings.Join(r.order, ", "))
		}
		if seen[src.Name] {
			continue
		}
		seen[src.Name] = true
		out = append(out, src)
	}
	return out, nil
}
