// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"slices"
	"testing"
)

func TestBufferOffsetDelta(t *testing.T) {
	b := NewBuffer(100, 10)

	tests := []struct {
		name       string
		from, to   int
		wantDelta  int
		wantSecond float64
	}{
		{"same", 4, 4, 0, 0},
		{"forward", 2, 7, 5, 0.05},
		{"wrapped", 8, 3, 5, 0.05},
		{"full lap minus one", 1, 0, 9, 0.09},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.OffsetDelta(tt.from, tt.to); got != tt.wantDelta {
				t.Errorf("OffsetDelta(%d, %d) = %d, want %d", tt.from, tt.to, got, tt.wantDelta)
			}
			if got := b.TimeDelta(tt.from, tt.to); math.Abs(got-tt.wantSecond) > 1e-12 {
				t.Errorf("TimeDelta(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.wantSecond)
			}
		})
	}
}

func TestBufferIndexWraps(t *testing.T) {
	b := NewBuffer(44100, 8)
	tests := []struct{ offset, index, want int }{
		{0, 0, 0},
		{7, 1, 0},
		{3, -5, 6},
		{20, 0, 4},
	}
	for _, tt := range tests {
		if got := b.BufferIndex(tt.offset, tt.index); got != tt.want {
			t.Errorf("BufferIndex(%d, %d) = %d, want %d", tt.offset, tt.index, got, tt.want)
		}
	}
}

func TestBufferCopyAcrossBoundary(t *testing.T) {
	b := NewBuffer(44100, 6)
	b.SetWritePointer(4)
	for i := range 4 {
		b.WriteSample(int16(i+1), b.WritePointer(), i)
	}
	b.CommitBlock(4)

	if b.WritePointer() != 2 {
		t.Fatalf("WritePointer() = %d, want 2", b.WritePointer())
	}

	dst := make([]int16, 4)
	b.CopyBuffer(dst, 4, 4)
	if want := []int16{1, 2, 3, 4}; !slices.Equal(dst, want) {
		t.Errorf("CopyBuffer() = %v, want %v", dst, want)
	}
	if got := b.ReadSample(0, 1); got != 4 {
		t.Errorf("ReadSample(0, 1) = %d, want 4", got)
	}

	short := make([]int16, 2)
	b.CopyBuffer(short, 5, 10)
	if want := []int16{2, 3}; !slices.Equal(short, want) {
		t.Errorf("clamped CopyBuffer() = %v, want %v", short, want)
	}
}

func TestBufferZeroSize(t *testing.T) {
	var b Buffer
	b.WriteSample(1, 0, 0)
	b.CommitBlock(3)
	b.CopyBuffer(make([]int16, 1), 0, 1)
	if b.OffsetDelta(1, 2) != 0 || b.BufferIndex(5, 5) != 0 || b.ReadSample(0, 0) != 0 {
		t.Error("zero-size buffer reported state")
	}
	b.Destroy()
	b.Destroy()
}
