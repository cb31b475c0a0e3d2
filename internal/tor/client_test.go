package tor

import (
	"context"
	"errors"
	"net"
	"testing"
)

// TestNewProxy tests the Proxy constructor.
func TestNewProxy(t *testing.T) {
	t.Parallel()

	t.Run("valid address", func(t *testing.T) {
		t.Parallel()

		p, err := NewProxy("127.0.0.1:9050")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Address() != "127.0.0.1:9050" {
			t.Errorf("Address() = %q, expected %q", p.Address(), "127.0.0.1:9050")
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()

		_, err := NewProxy("127.0.0.1")
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

// TestIsValidProxyAddress tests the proxy address validation function.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		address  string
		expected bool
	}{
		{"valid IPv4 with port", "127.0.0.1:9050", true},
		{"valid localhost with port", "localhost:9050", true},
		{"valid hostname with port", "tor.example.com:9050", true},
		{"valid IPv6 with port", "[::1]:9050", true},
		{"empty string", "", false},
		{"no port", "127.0.0.1", false},
		{"empty host", ":9050", false},
		{"empty port", "127.0.0.1:", false},
		{"port out of range", "127.0.0.1:70000", false},
		{"port zero", "127.0.0.1:0", false},
		{"multiple colons", "127.0.0.1:9050:extra", false},
		{"only colon", ":", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tc.address); got != tc.expected {
				t.Errorf("isValidProxyAddress(%q) = %v, expected %v", tc.address, got, tc.expected)
			}
		})
	}
}

// TestTransport verifies the transport dials through the proxy.
func TestTransport(t *testing.T) {
	t.Parallel()

	p, err := NewProxy("127.0.0.1:9050")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := p.Transport()
	if tr.DialContext == nil {
		t.Error("expected DialContext to be set")
	}
	if tr.MaxIdleConnsPerHost != 2 {
		t.Errorf("expected MaxIdleConnsPerHost 2, got %d", tr.MaxIdleConnsPerHost)
	}
}

// serveOnce starts a listener that reads the client greeting and answers
// with reply.
func serveOnce(t *testing.T, reply []byte) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
	if err != nil {
		t.Fatalf("failed to start mock server: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		_, _ = conn.Read(buf)
		_, _ = conn.Write(reply)
	}()
	return listener.Addr().String()
}

// TestCheckConnection tests the SOCKS5 handshake check.
func TestCheckConnection(t *testing.T) {
	t.Parallel()

	t.Run("returns CannotConnect for non-existent proxy", func(t *testing.T) {
		t.Parallel()

		// Grab a free port and close it so nothing listens there.
		l, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		addr := l.Addr().String()
		l.Close()

		p, err := NewProxy(addr)
		if err != nil {
			t.Fatalf("failed to create proxy: %v", err)
		}
		if status := p.CheckConnection(context.Background()); status != StatusCannotConnect {
			t.Errorf("expected StatusCannotConnect, got %v", status)
		}
	})

	t.Run("returns WrongType for non-SOCKS5 server", func(t *testing.T) {
		t.Parallel()

		p, err := NewProxy(serveOnce(t, []byte("HTTP/1.1 200 OK\r\n\r\n")))
		if err != nil {
			t.Fatalf("failed to create proxy: %v", err)
		}
		if status := p.CheckConnection(context.Background()); status != StatusWrongType {
			t.Errorf("expected StatusWrongType, got %v", status)
		}
	})

	t.Run("returns WrongType for SOCKS5 requiring auth", func(t *testing.T) {
		t.Parallel()

		p, err := NewProxy(serveOnce(t, []byte{0x05, 0xFF}))
		if err != nil {
			t.Fatalf("failed to create proxy: %v", err)
		}
		if status := p.CheckConnection(context.Background()); status != StatusWrongType {
			t.Errorf("expected StatusWrongType, got %v", status)
		}
	})

	t.Run("returns OK for a SOCKS5 greeting", func(t *testing.T) {
		t.Parallel()

		p, err := NewProxy(serveOnce(t, []byte{0x05, 0x00}))
		if err != nil {
			t.Fatalf("failed to create proxy: %v", err)
		}
		if status := p.CheckConnection(context.Background()); status != StatusOK {
			t.Errorf("expected StatusOK, got %v", status)
		}
	})
}

// TestStatus tests status strings and errors.
func TestStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status Status
		str    string
		err    error
	}{
		{StatusOK, "OK", nil},
		{StatusWrongType, "wrong type (not SOCKS5)", ErrNotSOCKS5},
		{StatusCannotConnect, "cannot connect", ErrProxyCannotConnect},
		{StatusTimeout, "timeout", ErrProxyTimeout},
	}
	for _, tc := range testCases {
		t.Run(tc.str, func(t *testing.T) {
			t.Parallel()
			if tc.status.String() != tc.str {
				t.Errorf("got %q, expected %q", tc.status.String(), tc.str)
			}
			if !errors.Is(tc.status.Err(), tc.err) {
				t.Errorf("got %v, expected %v", tc.status.Err(), tc.err)
			}
		})
	}
	if Status(99).String() != "unknown" {
		t.Error("expected unknown for an out-of-range status")
	}
}
