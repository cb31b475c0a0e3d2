// Package main provides the entry point for the fedsearch CLI.
//
// fedsearch sends one query to several content sources at once and streams
// the results back as they are found: preliminary rows first, then the
// confirmed items and the files inside them.
//
// Usage:
//
//	fedsearch search debian iso
//	fedsearch search --sources kat,bitsnoop --json ubuntu
//	fedsearch get <uid>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
