// Package workpool bounds how many operations of one kind run at once.
//
// A process typically owns two pools: one for search fetches and one for
// longer running transfer fetches, so that slow downloads never starve
// searches. Pools are created explicitly and injected where they are needed.
package workpool
