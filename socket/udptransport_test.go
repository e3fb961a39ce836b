package socket

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func readString(t *testing.T, s *UDPTransportSocket) string {
	t.Helper()
	if err := s.Conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	buf := make([]byte, 1500)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	return string(buf[:n])
}

func TestUDPTransportSocket(t *testing.T) {
	server := NewUDPTransportSocket()
	if err := server.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer server.Close()

	if err := server.Send([]byte("too early")); !errors.Is(err, ErrNoPeer) {
		t.Errorf("Send() before the peer is known = %v, want ErrNoPeer", err)
	}

	client := NewUDPTransportSocket()
	if err := client.Dial("127.0.0.1:0", server.LocalAddr().String()); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	if err := client.Send([]byte("ping")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := readString(t, server); got != "ping" {
		t.Errorf("server read %q, want %q", got, "ping")
	}
	if server.RemoteAddr().String() != client.LocalAddr().String() {
		t.Errorf("server peer = %s, want %s", server.RemoteAddr(), client.LocalAddr())
	}

	if err := server.Send([]byte("pong")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := readString(t, client); got != "pong" {
		t.Errorf("client read %q, want %q", got, "pong")
	}

	intruder := NewUDPTransportSocket()
	if err := intruder.Dial("127.0.0.1:0", server.LocalAddr().String()); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer intruder.Close()
	if err := intruder.Send([]byte("intruder")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := client.Send([]byte("second")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got := readString(t, server); got != "second" {
		t.Errorf("server read %q, want %q", got, "second")
	}
}

func TestUDPTransportSocketClose(t *testing.T) {
	s := NewUDPTransportSocket()
	if err := s.Dial("127.0.0.1:0", "127.0.0.1:9"); err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Read(make([]byte, 1500))
		done <- err
	}()

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Read() after Close = %v, want ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Read() did not return after Close")
	}
	if err := s.Send([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close = %v, want ErrClosed", err)
	}
}
