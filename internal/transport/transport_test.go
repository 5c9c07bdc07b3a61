package transport

import (
	"errors"
	"sync"
	"testing"
)

func TestQueue_FIFOThenError(t *testing.T) {
	q := NewQueue()
	q.Push(Packet{From: 1, Data: []byte{1}})
	q.Push(Packet{From: 2, Data: []byte{2}})
	boom := errors.New("boom")
	q.Fail(boom)
	q.Fail(errors.New("second"))
	q.Push(Packet{From: 3})

	for _, want := range []uint64{1, 2} {
		p, ok, err := q.Pop()
		if err != nil || !ok || p.From != want {
			t.Fatalf("pop: %+v ok=%v err=%v want from %d", p, ok, err, want)
		}
	}
	_, ok, err := q.Pop()
	if ok || !errors.Is(err, boom) {
		t.Fatalf("after drain: ok=%v err=%v", ok, err)
	}
}

func TestQueue_EmptyIsNotAnError(t *testing.T) {
	q := NewQueue()
	if _, ok, err := q.Pop(); ok || err != nil {
		t.Fatalf("empty pop: ok=%v err=%v", ok, err)
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(Packet{From: id})
			}
		}(uint64(g))
	}
	wg.Wait()
	if q.Len() != 800 {
		t.Fatalf("len=%d", q.Len())
	}
}
