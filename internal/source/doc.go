// Package source holds the grammars of the supported content sources and
// the registry the CLI selects them from.
//
// Every source is a performer.Source value built by a constructor in this
// package. The patterns, cue points and JSON shapes describe the public
// pages of each site as they were last observed; the tests pin them with
// canned pages, so a site redesign shows up as a failing fixture rather
// than silently empty results.
//
// # Sources
//
//   - bitsnoop: pattern search, details page, file list on the details page
//   - monova: pattern search with a consent cookie, filtered by seeds and age
//   - torlock: pattern search, details page, no file list
//   - kat: JSON search, unverified items dropped, file list endpoint
//   - extratorrent: JSON search, file list table read with CSS selectors
//   - soundcloud: paged JSON search of downloadable tracks
package source
