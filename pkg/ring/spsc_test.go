// SPDX-License-Identifier: MIT
package ring

import (
	"slices"
	"sync"
	"testing"
)

func TestSPSCReadDoesNotConsume(t *testing.T) {
	r := NewSPSC[float32](4)
	for i := range 3 {
		r.Write(float32(i))
	}

	dst := make([]float32, 8)
	if n := r.Read(8, dst); n != 3 {
		t.Fatalf("Read() = %d, want 3 (clamped to occupancy)", n)
	}
	if r.Size() != 3 {
		t.Errorf("Size() = %d, want 3", r.Size())
	}

	r.RemoveBeginning(2)
	if r.Size() != 1 {
		t.Errorf("Size() after RemoveBeginning(2) = %d, want 1", r.Size())
	}
	r.RemoveBeginning(10)
	if r.Size() != 0 {
		t.Errorf("RemoveBeginning past occupancy left %d", r.Size())
	}
}

func TestSPSCDropsWhenFull(t *testing.T) {
	r := NewSPSC[int](3)
	for i := range 5 {
		r.Write(i)
	}
	if r.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", r.Size())
	}
	if r.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", r.Dropped())
	}

	dst := make([]int, 3)
	r.Read(3, dst)
	if want := []int{0, 1, 2}; !slices.Equal(dst, want) {
		t.Errorf("Read() = %v, want %v (oldest kept)", dst, want)
	}
}

func TestSPSCWrapAround(t *testing.T) {
	r := NewSPSC[int](4)
	for i := range 3 {
		r.Write(i)
	}
	r.RemoveBeginning(3)
	for i := 3; i < 7; i++ {
		r.Write(i)
	}
	if r.WriteIndex() != 3 {
		t.Errorf("WriteIndex() = %d, want 3", r.WriteIndex())
	}

	dst := make([]int, 4)
	r.Read(4, dst)
	if want := []int{3, 4, 5, 6}; !slices.Equal(dst, want) {
		t.Errorf("Read() = %v, want %v", dst, want)
	}
}

func TestSPSCZeroCapacityAndDestroy(t *testing.T) {
	r := NewSPSC[int](0)
	if r.Write(1) {
		t.Error("Write() on zero capacity reported success")
	}
	if r.Read(1, make([]int, 1)) != 0 || r.Size() != 0 || r.WriteIndex() != 0 {
		t.Error("zero-capacity ring reported state")
	}

	r.Init(4)
	r.Write(1)
	r.Destroy()
	r.Destroy()
	if r.Cap() != 0 || r.Size() != 0 || r.Dropped() != 0 {
		t.Error("Destroy() did not reset the ring")
	}
}

// TestSPSCConcurrentOrder runs one producer and one consumer concurrently and
// checks that every accepted element arrives exactly once and in order.
func TestSPSCConcurrentOrder(t *testing.T) {
	const total = 20000
	r := NewSPSC[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if r.Write(i) {
				i++
			}
		}
	}()

	dst := make([]int, 16)
	next := 0
	for next < total {
		n := r.Read(len(dst), dst)
		for _, v := range dst[:n] {
			if v != next {
				t.Fatalf("got %d, want %d", v, next)
			}
			next++
		}
		r.RemoveBeginning(n)
	}
	wg.Wait()
}
