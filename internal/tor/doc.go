// Package tor routes search and transfer fetches through a SOCKS5 proxy,
// usually a Tor daemon.
//
// Some content sources are blocked by ISPs or only reachable through
// mirrors. Sending fetches through Tor keeps them reachable without changing
// any performer: the Proxy builds an http.RoundTripper that the fetch package
// plugs into its client with fetch.WithTransport.
//
// Two modes are supported:
//   - an existing daemon, addressed by "host:port" (NewProxy)
//   - an embedded daemon started through tornago (EmbeddedTor)
//
// Design decision: Only the SOCKS5 dialer comes from golang.org/x/net/proxy.
// tornago is used to run the daemon, not to make requests, so the rest of the
// stack keeps a plain *http.Client.
package tor
