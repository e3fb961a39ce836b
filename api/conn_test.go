package reliable

import (
	"bytes"
	"context"
	"math/rand"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/netsys-lab/reliable/controlplane"
)

func TestConnLoopback(t *testing.T) {
	cfg := &controlplane.Config{Timeout: 50 * time.Millisecond}
	upload := make([]byte, 64*1024)
	rand.New(rand.NewSource(7)).Read(upload)
	download := "served by the listener"

	var atServer, atClient bytes.Buffer
	server, err := Listen("127.0.0.1:0", strings.NewReader(download), &atServer, cfg)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	client, err := Dial("127.0.0.1:0", server.LocalAddr().String(), bytes.NewReader(upload), &atClient, cfg)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	errs := make(chan error, 2)
	go func() { errs <- server.Run(ctx) }()
	go func() { errs <- client.Run(ctx) }()
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}

	if !bytes.Equal(atServer.Bytes(), upload) {
		t.Errorf("server received %d bytes, want %d", atServer.Len(), len(upload))
	}
	if atClient.String() != download {
		t.Errorf("client received %q, want %q", atClient.String(), download)
	}
	if m := server.Metrics(); m.DeliveredBytes != uint64(len(upload)) {
		t.Errorf("server DeliveredBytes = %d, want %d", m.DeliveredBytes, len(upload))
	}

	select {
	case <-client.Done():
	default:
		t.Errorf("Done() not closed after Run returned")
	}
}

func TestConnCancel(t *testing.T) {
	var out bytes.Buffer
	// Nobody listens, the stream can never finish.
	conn, err := Dial("127.0.0.1:0", "127.0.0.1:9", strings.NewReader("lost"), &out, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := conn.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
}

// endlessReader never runs out of input.
type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestConnCancelReleasesGoroutines(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 5; i++ {
		conn, err := Dial("127.0.0.1:0", "127.0.0.1:9", endlessReader{}, &bytes.Buffer{}, nil)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if err := conn.Run(ctx); err != context.DeadlineExceeded {
			t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
		}
		cancel()
	}

	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("goroutines before = %d, after = %d", before, after)
	}
}

func TestDialBadAddress(t *testing.T) {
	if _, err := Dial("", "not an address", strings.NewReader(""), &bytes.Buffer{}, nil); err == nil {
		t.Errorf("Dial() with a bad address succeeded")
	}
}
