// streaming.go: Streaming encryption/decryption of UTF-8 text.
//
// The streaming types run one machine across an io.Writer or io.Reader so
// that text of any length can be ciphered without holding it in memory.
// Symbols split across Write or Read boundaries are carried over and
// ciphered once complete; bytes that are not valid UTF-8 pass through
// unchanged, like any other symbol outside the alphabet.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package enigma

import (
	"fmt"
	"io"
	"unicode/utf8"

	goerrors "github.com/agilira/go-errors"
)

// DefaultChunkSize is how many bytes a StreamingDecryptor reads from its
// source at a time.
const DefaultChunkSize = 4 * 1024

// StreamingEncryptor ciphers text written to it and writes the result to
// the underlying writer.
//
// Example usage:
//
//	enc, _ := enigma.NewStreamingEncryptor(os.Stdout, cfg)
//	defer enc.Close()
//
//	io.Copy(enc, os.Stdin)
//
// Since the machine is reciprocal, the same type also deciphers.
// A StreamingEncryptor is not safe for concurrent use.
type StreamingEncryptor interface {
	// Write ciphers data and writes it to the underlying writer. A trailing
	// incomplete UTF-8 sequence is held until the next Write or Close.
	// After a failed Write the machine is out of step with the receiver:
	// later Writes and Close report the same error.
	Write(data []byte) (int, error)

	// Close writes any held bytes unchanged. It does not close the
	// underlying writer.
	Close() error

	// Config returns the machine state after the last ciphered symbol.
	Config() MachineConfig
}

// StreamingDecryptor ciphers text read from the underlying reader.
//
// Example usage:
//
//	dec, _ := enigma.NewStreamingDecryptor(file, cfg)
//	defer dec.Close()
//
//	io.Copy(os.Stdout, dec)
//
// A StreamingDecryptor is not safe for concurrent use.
type StreamingDecryptor interface {
	// Read returns ciphered text from the underlying reader.
	Read(data []byte) (int, error)

	// Close releases the decryptor's buffers. It does not close the
	// underlying reader.
	Close() error

	// Config returns the machine state after the last ciphered symbol.
	Config() MachineConfig
}

// runeStream is the machine state shared by both stream directions.
type runeStream struct {
	m        *machine
	cfg      MachineConfig
	carry    [utf8.UTFMax]byte
	carryLen int
}

func newRuneStream(cfg MachineConfig) (*runeStream, error) {
	m, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	return &runeStream{m: m, cfg: cfg}, nil
}

// transform appends the ciphered form of the carried bytes followed by data
// to dst. Unless final is set, an incomplete trailing sequence is carried.
func (s *runeStream) transform(dst, data []byte, final bool) []byte {
	if s.carryLen > 0 {
		// Finish the carried sequence from the head of data.
		var joint [2 * utf8.UTFMax]byte
		n := copy(joint[:], s.carry[:s.carryLen])
		head := joint[:n+copy(joint[n:], data)]
		s.carryLen = 0

		consumed := 0
		for consumed < n {
			rest := head[consumed:]
			if !final && !utf8.FullRune(rest) {
				// rest holds all of data
				s.carryLen = copy(s.carry[:], rest)
				return dst
			}
			var size int
			dst, size = s.emit(dst, rest)
			consumed += size
		}
		data = data[consumed-n:]
	}

	for len(data) > 0 {
		if !final && !utf8.FullRune(data) {
			break
		}
		var size int
		dst, size = s.emit(dst, data)
		data = data[size:]
	}
	s.carryLen = copy(s.carry[:], data)
	return dst
}

// emit ciphers the first symbol of src onto dst and reports the bytes used.
// A byte that does not start a valid sequence is copied unchanged.
func (s *runeStream) emit(dst, src []byte) ([]byte, int) {
	r, size := utf8.DecodeRune(src)
	if r == utf8.RuneError && size <= 1 {
		return append(dst, src[0]), 1
	}
	var out rune
	out, s.cfg = s.m.press(r, s.cfg)
	return utf8.AppendRune(dst, out), size
}

func streamClosedError(op string) error {
	richErr := goerrors.New(ErrCodeStreamClosed, fmt.Sprintf("cannot %s closed stream", op))
	return fmt.Errorf("%w: %w", ErrStreamClosed, richErr)
}

// streamingEncryptor implements StreamingEncryptor.
type streamingEncryptor struct {
	writer io.Writer
	stream *runeStream
	out    []byte
	err    error // sticky write failure
	closed bool
}

// streamingDecryptor implements StreamingDecryptor.
type streamingDecryptor struct {
	reader  io.Reader
	stream  *runeStream
	out     []byte
	pending []byte // ciphered bytes not yet returned
	eof     bool
	closed  bool
}

// NewStreamingEncryptor creates an encryptor starting from cfg, which is
// validated first.
//
// Example:
//
//	var buf bytes.Buffer
//	enc, err := enigma.NewStreamingEncryptor(&buf, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Fprint(enc, "ATTACK AT DAWN")
//	enc.Close()
func NewStreamingEncryptor(writer io.Writer, cfg MachineConfig) (StreamingEncryptor, error) {
	stream, err := newRuneStream(cfg)
	if err != nil {
		return nil, err
	}
	return &streamingEncryptor{
		writer: writer,
		stream: stream,
		out:    getOutputBuffer(),
	}, nil
}

// NewStreamingDecryptor creates a decryptor starting from cfg, which is
// validated first.
func NewStreamingDecryptor(reader io.Reader, cfg MachineConfig) (StreamingDecryptor, error) {
	stream, err := newRuneStream(cfg)
	if err != nil {
		return nil, err
	}
	return &streamingDecryptor{
		reader: reader,
		stream: stream,
		out:    getOutputBuffer(),
	}, nil
}

// Write implements the Write method of StreamingEncryptor.
func (e *streamingEncryptor) Write(data []byte) (int, error) {
	if e.closed {
		return 0, streamClosedError("write to")
	}
	if e.err != nil {
		return 0, e.err
	}

	e.out = e.stream.transform(e.out[:0], data, false)
	if len(e.out) == 0 {
		return len(data), nil
	}
	if _, err := e.writer.Write(e.out); err != nil {
		// The rotors have already moved past the lost text.
		e.err = goerrors.Wrap(err, ErrCodeStreamIO, "failed to write ciphered text")
		return 0, e.err
	}
	return len(data), nil
}

// Close implements the Close method of StreamingEncryptor.
func (e *streamingEncryptor) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	if e.err != nil {
		putOutputBuffer(e.out)
		e.out = nil
		return e.err
	}

	e.out = e.stream.transform(e.out[:0], nil, true)
	var err error
	if len(e.out) > 0 {
		if _, werr := e.writer.Write(e.out); werr != nil {
			err = goerrors.Wrap(werr, ErrCodeStreamIO, "failed to write trailing bytes")
		}
	}
	putOutputBuffer(e.out)
	e.out = nil
	e.err = err
	return err
}

// Config implements the Config method of StreamingEncryptor.
func (e *streamingEncryptor) Config() MachineConfig {
	return e.stream.cfg
}

// Read implements the Read method of StreamingDecryptor.
func (d *streamingDecryptor) Read(data []byte) (int, error) {
	if d.closed {
		return 0, streamClosedError("read from")
	}
	if len(data) == 0 {
		return 0, nil
	}

	for len(d.pending) == 0 {
		if d.eof {
			return 0, io.EOF
		}
		if err := d.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(data, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// fill reads one chunk from the source and ciphers it into pending.
func (d *streamingDecryptor) fill() error {
	chunk := getChunk()
	defer putChunk(chunk)

	n, err := d.reader.Read(*chunk)
	d.out = d.stream.transform(d.out[:0], (*chunk)[:n], false)
	switch {
	case err == io.EOF:
		d.eof = true
		d.out = d.stream.transform(d.out, nil, true)
	case err != nil:
		d.pending = d.out
		return goerrors.Wrap(err, ErrCodeStreamIO, "failed to read source text")
	}
	d.pending = d.out
	return nil
}

// Close implements the Close method of StreamingDecryptor.
func (d *streamingDecryptor) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	putOutputBuffer(d.out)
	d.out = nil
	d.pending = nil
	return nil
}

// Config implements the Config method of StreamingDecryptor.
func (d *streamingDecryptor) Config() MachineConfig {
	return d.stream.cfg
}
