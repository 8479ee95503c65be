package queue_test

import (
	"testing"

	"github.com/vhrdtech/xpigo/queue"
)

func TestReserveCommitDrain(t *testing.T) {
	q := queue.New("test", 2, 64)

	buf, err := q.Reserve(10)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	copy(buf, []byte("helloworld"))
	if err := q.Commit(10); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	select {
	case msg := <-q.Drain():
		if string(msg) != "helloworld" {
			t.Fatalf("got %q", msg)
		}
	default:
		t.Fatalf("expected a committed message")
	}
}

func TestDiscardReturnsBufferToPool(t *testing.T) {
	q := queue.New("test", 1, 64)

	if _, err := q.Reserve(8); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	q.Discard()

	if _, err := q.Reserve(8); err != nil {
		t.Fatalf("Reserve after Discard should succeed: %v", err)
	}
}

func TestReserveExhausted(t *testing.T) {
	q := queue.New("test", 1, 64)

	if _, err := q.Reserve(8); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := q.Reserve(8); err != queue.ErrQueueExhausted {
		t.Fatalf("expected ErrQueueExhausted, got %v", err)
	}
}
