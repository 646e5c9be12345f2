/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2023 HashiCorp Inc.
 */

package transport

import (
	"errors"
	"sync"
	"testing"
)

func TestSendQueueOrdering(t *testing.T) {
	q := NewSendQueue()
	for i := 0; i < 10; i++ {
		if err := q.Enqueue(&Packet{Session: uint64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 10; i++ {
		p := <-q.Outbound()
		if p.Session != uint64(i) {
			t.Fatalf("packet %d arrived at position %d", p.Session, i)
		}
	}
}

func TestSendQueueNeverBlocks(t *testing.T) {
	q := NewSendQueue()
	var full bool
	for i := 0; i < queueSendSize+10; i++ {
		if err := q.Enqueue(&Packet{}); err != nil {
			if !errors.Is(err, ErrQueueFull) {
				t.Fatalf("unexpected error %v", err)
			}
			full = true
		}
	}
	if !full {
		t.Fatal("overfilled queue never reported ErrQueueFull")
	}
}

func TestSendQueueClose(t *testing.T) {
	q := NewSendQueue()
	if err := q.Enqueue(&Packet{Session: 7}); err != nil {
		t.Fatal(err)
	}
	q.Close()
	q.Close() // idempotent

	if err := q.Enqueue(&Packet{}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	// packets enqueued before Close stay readable
	p := <-q.Outbound()
	if p.Session != 7 {
		t.Fatalf("drained packet %d, want 7", p.Session)
	}
}

func TestSendQueueConcurrentEnqueue(t *testing.T) {
	q := NewSendQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(session uint64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := q.Enqueue(&Packet{Session: session}); err != nil {
					t.Error(err)
					return
				}
			}
		}(uint64(i))
	}
	wg.Wait()

	counts := make(map[uint64]int)
	for i := 0; i < 800; i++ {
		p := <-q.Outbound()
		counts[p.Session]++
	}
	for session, n := range counts {
		if n != 100 {
			t.Fatalf("session %d delivered %d packets, want 100", session, n)
		}
	}
}
