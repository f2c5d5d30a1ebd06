package backend

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net"
	"testing"
	"time"
)

func TestDecompressPassesThroughUnknownCodec(t *testing.T) {
	in := bytes.NewBufferString("raw pcl bytes")
	out, err := decompress("identity", in)
	if err != nil {
		t.Fatalf("decompress returned error: %v", err)
	}
	got, _ := io.ReadAll(out)
	if string(got) != "raw pcl bytes" {
		t.Fatalf("decompress(identity) altered bytes: %q", got)
	}
}

func TestDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("hello pjl"))
	gw.Close()

	out, err := decompress("gzip", &buf)
	if err != nil {
		t.Fatalf("decompress(gzip) returned error: %v", err)
	}
	got, err := io.ReadAll(out)
	if err != nil {
		t.Fatalf("reading decompressed stream: %v", err)
	}
	if string(got) != "hello pjl" {
		t.Fatalf("decompress(gzip) = %q, want %q", got, "hello pjl")
	}
}

func TestCopyWithRetryCopiesAllBytes(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	payload := bytes.Repeat([]byte("x"), 128*1024+17)
	done := make(chan struct{})
	var readN int64
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := server.Read(buf)
			readN += int64(n)
			if err != nil {
				break
			}
		}
		close(done)
	}()

	n, err := copyWithRetry(context.Background(), client, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("copyWithRetry returned error: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("copyWithRetry copied %d bytes, want %d", n, len(payload))
	}
	client.Close()
	server.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server side never observed stream end")
	}
	if readN != int64(len(payload)) {
		t.Fatalf("server observed %d bytes, want %d", readN, len(payload))
	}
}

func TestCopyWithRetryHonorsCanceledContext(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := copyWithRetry(ctx, client, bytes.NewReader([]byte("data")))
	if err == nil {
		t.Fatal("expected copyWithRetry to fail against an already-canceled context")
	}
}
