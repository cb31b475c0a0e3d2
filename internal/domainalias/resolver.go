package domainalias

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// state is one immutable generation of the resolver. It is replaced as a
// whole and never modified after it is published.
type state struct {
	manifest Manifest

	// order is the current try-order per canonical domain.
	order map[string][]string

	// failed lists demoted domains per canonical domain, oldest failure
	// first. It survives manifest reloads.
	failed map[string][]string
}

// Resolver answers which domain to use for a canonical source.
// It is safe for concurrent use.
type Resolver struct {
	cur atomic.Pointer[state]
}

// NewResolver returns a Resolver initialized with m.
func NewResolver(m Manifest) *Resolver {
	r := &Resolver{}
	r.cur.Store(buildState(m.Clone(), map[string][]string{}))
	return r
}

// buildState derives the try-order from a manifest and the failure history:
// healthy aliases keep manifest order, demoted ones follow in failure order.
func buildState(m Manifest, failed map[string][]string) *state {
	s := &state{
		manifest: m,
		order:    make(map[string][]string, len(m.Aliases)),
		failed:   failed,
	}
	for canonical, aliases := range m.Aliases {
		demoted := failed[canonical]
		order := make([]string, 0, len(aliases))
		for _, a := range aliases {
			if !slices.Contains(demoted, a) {
				order = append(order, a)
			}
		}
		for _, a := range demoted {
			if slices.Contains(aliases, a) {
				order = append(order, a)
			}
		}
		s.order[canonical] = order
	}
	return s
}

// CurrentDomain returns the domain to use for canonical. When the source has
// no aliases, or is unknown, the canonical name itself is returned.
func (r *Resolver) CurrentDomain(canonical string) string {
	order := r.cur.Load().order[canonical]
	if len(order) == 0 {
		return canonical
	}
	return order[0]
}

// Aliases returns the current try-order for canonical.
func (r *Resolver) Aliases(canonical string) []string {
	return slices.Clone(r.cur.Load().order[canonical])
}

// ReportFailure demotes domain to the back of canonical's alias list for the
// rest of the process. Unknown domains are ignored.
func (r *Resolver) ReportFailure(canonical, domain string) {
	for {
		old := r.cur.Load()
		order := old.order[canonical]
		idx := slices.Index(order, domain)
		if idx < 0 || len(order) < 2 {
			return
		}

		next := &state{
			manifest: old.manifest,
			order:    cloneMap(old.order),
			failed:   cloneMap(old.failed),
		}
		moved := slices.Delete(slices.Clone(order), idx, idx+1)
		next.order[canonical] = append(moved, domain)

		history := slices.DeleteFunc(slices.Clone(old.failed[canonical]), func(s string) bool { return s == domain })
		next.failed[canonical] = append(history, domain)

		if r.cur.CompareAndSwap(old, next) {
			return
		}
	}
}

// LoadManifest atomically replaces the mapping with m. A manifest older than
// the loaded one is rejected with ErrStaleManifest; an equal version is
// accepted so a local file can be reloaded after editing.
func (r *Resolver) LoadManifest(m Manifest) error {
	for {
		old := r.cur.Load()
		if m.Version < old.manifest.Version {
			return fmt.Errorf("%w: have %d, got %d", ErrStaleManifest, old.manifest.Version, m.Version)
		}
		next := buildState(m.Clone(), old.failed)
		if r.cur.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// Snapshot returns a copy of the loaded manifest with alias lists in their
// current try-order.
func (r *Resolver) Snapshot() Manifest {
	s := r.cur.Load()
	out := s.manifest.Clone()
	for k, v := range s.order {
		out.Aliases[k] = slices.Clone(v)
	}
	return out
}

// Version returns the version of the loaded manifest.
func (r *Resolver) Version() int64 {
	return r.cur.Load().manifest.Version
}

func cloneMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
