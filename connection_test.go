package tlscore

import (
	"context"
	"crypto/tls"
	"net"
	"testing"
	"time"
)

func validTestConfig(t *testing.T) *Config {
	t.Helper()

	cert := generateSelfSigned(t)

	return &Config{
		CipherSuites: []CipherSuiteID{TLSECDHEECDSAWithAES256GCMSHA384},
		Certificates: []tls.Certificate{cert},
	}
}

func TestNewConnectionRejectsNilConn(t *testing.T) {
	if _, err := NewClientConnection(nil, validTestConfig(t)); err != errNilNextConn {
		t.Fatalf("NewClientConnection(nil, ...) error = %v, want %v", err, errNilNextConn)
	}
}

func TestNewConnectionRejectsInvalidConfig(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	if _, err := NewClientConnection(client, nil); err != errNoConfigProvided {
		t.Fatalf("NewClientConnection(conn, nil) error = %v, want %v", err, errNoConfigProvided)
	}
}

func TestConnectionReadWriteBeforeHandshakeErrors(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn, err := NewClientConnection(client, validTestConfig(t))
	if err != nil {
		t.Fatalf("NewClientConnection() error = %v", err)
	}

	if _, err := conn.Write([]byte("hi")); err != errHandshakeInProgress {
		t.Fatalf("Write() before handshake error = %v, want %v", err, errHandshakeInProgress)
	}
	if _, err := conn.Read(make([]byte, 16)); err != errHandshakeInProgress {
		t.Fatalf("Read() before handshake error = %v, want %v", err, errHandshakeInProgress)
	}
}

func TestConnectionCloseIsIdempotentAndSendsCloseNotify(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	conn, err := NewClientConnection(client, validTestConfig(t))
	if err != nil {
		t.Fatalf("NewClientConnection() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 64)
		_, _ = server.Read(buf) // drains the close_notify alert record so Close doesn't block
	}()

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	<-done

	if err := conn.Close(); err != nil {
		t.Fatalf("second Close() error = %v, want nil (idempotent)", err)
	}
}

func TestConnectionQuietShutdownSkipsCloseNotify(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	cfg := validTestConfig(t)
	cfg.QuietShutdown = true

	conn, err := NewClientConnection(client, cfg)
	if err != nil {
		t.Fatalf("NewClientConnection() error = %v", err)
	}

	writeDone := make(chan error, 1)
	go func() { writeDone <- conn.Close() }()

	select {
	case err := <-writeDone:
		if err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close() blocked, want it to skip the close_notify write entirely under QuietShutdown")
	}
}

func TestDTLSRecordSize(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want int
	}{
		{"too short for header", make([]byte, 5), 0},
		{"header only, claims 10 bytes body but buffer is short", append(make([]byte, 11), 0, 10), 0},
		{"complete record", append(make([]byte, 11), 0, 2, 0xAA, 0xBB), 15},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dtlsRecordSize(tc.buf); got != tc.want {
				t.Errorf("dtlsRecordSize() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestHandshakeContextCancellation(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn, err := NewClientConnection(client, validTestConfig(t))
	if err != nil {
		t.Fatalf("NewClientConnection() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := conn.Handshake(ctx); err == nil {
		t.Fatal("Handshake() with an already-canceled context = nil error, want non-nil")
	}
}
