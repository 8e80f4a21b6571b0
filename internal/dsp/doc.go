// SPDX-License-Identifier: MIT
/*
Package dsp implements the per-sample filters used by the synthesizer.

Every filter is a small stateful value with a single-input/single-output F
method. Filters that own buffers expose Initialize/Destroy; both are
idempotent and may be called any number of times. After initialization F
performs no heap allocation, so all of these are safe to call from the audio
render hot path.

A filter instance is not safe for concurrent use. The synthesizer only touches
filter state from its render goroutine once rendering has started.
*/
package dsp
