// pool.go: Buffer pooling for the streaming cipher
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"sync"
)

// Output buffers outside these bounds are not kept.
const (
	minPooledOutput = 256
	maxPooledOutput = 16 * DefaultChunkSize
)

var (
	// Read chunks for StreamingDecryptor.fill, always DefaultChunkSize long.
	chunkPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, DefaultChunkSize)
			return &buf
		},
	}

	// Growable buffers for ciphered output.
	outputPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, 0, minPooledOutput)
			return &buf // pointer avoids an allocation on Put (SA6002)
		},
	}
)

func init() {
	WarmupPools(4)
}

// getChunk returns a DefaultChunkSize buffer.
func getChunk() *[]byte {
	buf := chunkPool.Get().(*[]byte)
	*buf = (*buf)[:DefaultChunkSize]
	return buf
}

// putChunk clears buf and returns it to the pool. Pooled buffers carry
// plaintext.
func putChunk(buf *[]byte) {
	if buf == nil || cap(*buf) != DefaultChunkSize {
		return
	}
	clear((*buf)[:cap(*buf)])
	chunkPool.Put(buf)
}

// getOutputBuffer returns an empty buffer that can grow with append.
func getOutputBuffer() []byte {
	buf := outputPool.Get().(*[]byte)
	return (*buf)[:0]
}

// putOutputBuffer clears buf and keeps it when its capacity is worth it.
func putOutputBuffer(buf []byte) {
	bufCap := cap(buf)
	if bufCap == 0 {
		return
	}
	clear(buf[:bufCap])

	if bufCap >= minPooledOutput && bufCap <= maxPooledOutput {
		outputPool.Put(&buf)
	}
}

// WarmupPools pre-allocates count buffers in every pool.
func WarmupPools(count int) {
	chunks := make([]*[]byte, count)
	outputs := make([][]byte, count)

	for i := 0; i < count; i++ {
		chunks[i] = getChunk()
		outputs[i] = getOutputBuffer()
	}
	for i := 0; i < count; i++ {
		putChunk(chunks[i])
		putOutputBuffer(outputs[i])
	}
}
