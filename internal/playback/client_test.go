package playback

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func listen(t *testing.T, handle func(net.Conn)) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- string(data)
		if handle != nil {
			handle(conn)
		}
	}()
	return ln.Addr().String(), received
}

func TestSendWithAck(t *testing.T) {
	addr, received := listen(t, func(conn net.Conn) {
		conn.Write([]byte("OK"))
	})

	core, logs := observer.New(zap.InfoLevel)
	client := NewClient(Config{Addr: addr, AckTimeout: time.Second}, zap.New(core))

	if err := client.Send(context.Background(), "Hello Candidate."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := <-received; got != "Hello Candidate." {
		t.Fatalf("unexpected payload %q", got)
	}

	entries := logs.FilterMessage("player acknowledged text").All()
	if len(entries) != 1 || entries[0].ContextMap()["ack"] != "OK" {
		t.Fatalf("expected ack log entry, got %v", logs.All())
	}
}

func TestSendWithoutAckIsSuccess(t *testing.T) {
	addr, received := listen(t, nil)

	client := NewClient(Config{Addr: addr, AckTimeout: 50 * time.Millisecond}, zap.NewNop())
	if err := client.Send(context.Background(), "Next question."); err != nil {
		t.Fatalf("missing ack must not fail: %v", err)
	}
	if got := <-received; got != "Next question." {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestSendAckTimeoutIsSuccess(t *testing.T) {
	release := make(chan struct{})
	addr, _ := listen(t, func(net.Conn) { <-release })
	defer close(release)

	client := NewClient(Config{Addr: addr, AckTimeout: 50 * time.Millisecond}, zap.NewNop())
	if err := client.Send(context.Background(), "Are you ready?"); err != nil {
		t.Fatalf("ack timeout must not fail: %v", err)
	}
}

func TestSendConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := NewClient(Config{Addr: addr, DialTimeout: 200 * time.Millisecond}, zap.NewNop())
	if err := client.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestSendRejectsEmptyText(t *testing.T) {
	client := NewClient(Config{}, nil)
	if err := client.Send(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if client.cfg.Addr != DefaultAddr {
		t.Fatalf("expected default addr, got %q", client.cfg.Addr)
	}
}
