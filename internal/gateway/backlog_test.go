package gateway

import (
	"bytes"
	"testing"
)

func TestBacklog_PushAndAfter(t *testing.T) {
	b := NewBacklog(10)

	for seq := int64(1); seq <= 5; seq++ {
		b.Push(seq, []byte{byte('a' + seq - 1)})
	}

	if b.Len() != 5 {
		t.Fatalf("expected len 5, got %d", b.Len())
	}

	got := b.After(2)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries after seq 2, got %d", len(got))
	}
	if !bytes.Equal(got[0], []byte("c")) || !bytes.Equal(got[2], []byte("e")) {
		t.Errorf("wrong replay order: %q", got)
	}
}

func TestBacklog_OverwritesOldest(t *testing.T) {
	b := NewBacklog(3)

	for seq := int64(1); seq <= 5; seq++ {
		b.Push(seq, []byte{byte('0' + seq)})
	}

	if b.Len() != 3 {
		t.Fatalf("expected len 3 after wrap, got %d", b.Len())
	}

	// Seqs 1 and 2 were evicted.
	got := b.After(0)
	if len(got) != 3 {
		t.Fatalf("expected 3 survivors, got %d", len(got))
	}
	if !bytes.Equal(got[0], []byte("3")) {
		t.Errorf("oldest survivor: want %q, got %q", "3", got[0])
	}
}

func TestBacklog_AfterBeyondNewest(t *testing.T) {
	b := NewBacklog(4)
	b.Push(1, []byte("x"))

	if got := b.After(1); got != nil {
		t.Fatalf("expected no entries after newest seq, got %d", len(got))
	}
}

func TestBacklog_CopiesData(t *testing.T) {
	b := NewBacklog(4)
	src := []byte("original")
	b.Push(1, src)
	src[0] = 'X'

	got := b.After(0)
	if !bytes.Equal(got[0], []byte("original")) {
		t.Errorf("backlog aliased the caller's buffer: %q", got[0])
	}
}
