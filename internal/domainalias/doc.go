// Package domainalias keeps the list of working domains for each content
// source and picks the one to use right now.
//
// A Manifest maps a canonical domain (for example "kickass.to") to an ordered
// list of alias domains. The Resolver answers CurrentDomain from the head of
// that list and moves a domain to the back when ReportFailure is called, so
// repeated failures round-robin through the aliases.
//
// Design decision: The Resolver never does network I/O. Manifests come from a
// Fetcher (a signed HTTP document or a local file) and are handed to
// LoadManifest by Refresh or Watch. Until one arrives, DefaultManifest keeps
// every source usable with zero network access.
//
// Readers never lock. The current state lives behind an atomic.Pointer and
// writers install a modified copy with compare-and-swap, so a reader sees
// either the old mapping or the new one, never a mix.
package domainalias
