package domainalias

import (
	"maps"
	"slices"
	"time"
)

// Canonical domains known to the default manifest.
const (
	CanonicalKAT          = "kickass.to"
	CanonicalPirateBay    = "thepiratebay.se"
	CanonicalExtratorrent = "extratorrent.cc"
)

// Manifest is a versioned snapshot of canonical domain to alias domains.
type Manifest struct {
	// Version increases monotonically with every published manifest.
	Version int64 `json:"version" yaml:"version"`

	// LastUpdated is when the manifest was produced.
	LastUpdated time.Time `json:"lastUpdated" yaml:"last_updated"`

	// Aliases maps a canonical domain to its aliases in preference order.
	Aliases map[string][]string `json:"aliases" yaml:"aliases"`
}

// DefaultManifest returns the built-in manifest used until a refreshed one
// is loaded. Every known source maps to an empty alias list, which makes
// CurrentDomain return the canonical name itself.
func DefaultManifest(now time.Time) Manifest {
	return Manifest{
		Version:     0,
		LastUpdated: now,
		Aliases: map[string][]string{
			CanonicalKAT:          {},
			CanonicalPirateBay:    {},
			CanonicalExtratorrent: {},
		},
	}
}

// Clone returns a deep copy of m.
func (m Manifest) Clone() Manifest {
	out := Manifest{
		Version:     m.Version,
		LastUpdated: m.LastUpdated,
		Aliases:     make(map[string][]string, len(m.Aliases)),
	}
	for k, v := range m.Aliases {
		out.Aliases[k] = slices.Clone(v)
	}
	return out
}

// Canonicals returns the canonical domains in sorted order.
func (m Manifest) Canonicals() []string {
	return slices.Sorted(maps.Keys(m.Aliases))
}
