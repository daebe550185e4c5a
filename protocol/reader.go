// File: protocol/reader.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reader implements the two-phase read shape shell.c uses: first pull
// enough bytes to know the signature and, for variable-length messages,
// its declared size; then pull the remainder. A transport.Conn re-arms
// Recv(Need()) in a loop until Feed reports a complete message.

package protocol

import "fmt"

// phase names the two states a Reader cycles through per message.
type phase int

const (
	phaseSignature phase = iota
	phaseBody
)

// Reader accumulates bytes across possibly-partial Recv calls and
// yields one decoded message at a time. It is not safe for concurrent
// use; each Conn owns exactly one.
type Reader struct {
	phase phase
	buf   []byte
	need  int
}

// NewReader returns a Reader primed to read a message's leading
// signature byte.
func NewReader() *Reader {
	r := &Reader{}
	r.reset()
	return r
}

func (r *Reader) reset() {
	r.phase = phaseSignature
	r.buf = r.buf[:0]
	r.need = SignatureSize
}

// Need reports how many more bytes the caller must Recv and pass to
// Feed before the Reader can make progress.
func (r *Reader) Need() int {
	return r.need
}

// Feed appends chunk, which must be exactly Need() bytes, and advances
// the Reader's phase. It returns a decoded message, one of *DrvInfo,
// *DrvCommand, or *DrvResponse, once a complete message has arrived;
// otherwise msg is nil and the caller should Recv(Need()) again.
func (r *Reader) Feed(chunk []byte) (msg interface{}, err error) {
	if len(chunk) != r.need {
		return nil, fmt.Errorf("protocol: Feed got %d bytes, wanted %d", len(chunk), r.need)
	}
	r.buf = append(r.buf, chunk...)

	switch r.phase {
	case phaseSignature:
		return r.afterSignature()
	case phaseBody:
		return r.afterBody()
	default:
		panic("protocol: unreachable reader phase")
	}
}

func (r *Reader) afterSignature() (interface{}, error) {
	sig := Signature(r.buf[0])
	switch sig {
	case SigDrvInfo:
		r.phase = phaseBody
		r.need = 4
		return nil, nil
	case SigDrvCommand:
		r.phase = phaseBody
		r.need = 8
		return nil, nil
	case SigDrvResponse:
		r.phase = phaseBody
		r.need = 4
		return nil, nil
	default:
		r.reset()
		return nil, fmt.Errorf("%w: unknown signature %d", ErrMalformed, sig)
	}
}

func (r *Reader) afterBody() (interface{}, error) {
	sig := Signature(r.buf[0])
	switch sig {
	case SigDrvInfo:
		n := order.Uint32(r.buf[SignatureSize:])
		total := DrvInfoSize(int(n))
		if len(r.buf) < total {
			r.need = total - len(r.buf)
			return nil, nil
		}
		info, err := DecodeDrvInfo(r.buf)
		r.reset()
		return info, err
	case SigDrvCommand:
		return r.afterCommandHeader()
	case SigDrvResponse:
		length := order.Uint32(r.buf[SignatureSize:])
		total := DrvResponseSize(int(length))
		if len(r.buf) < total {
			r.need = total - len(r.buf)
			return nil, nil
		}
		resp, err := DecodeDrvResponse(r.buf)
		r.reset()
		return resp, err
	default:
		r.reset()
		return nil, fmt.Errorf("%w: unknown signature %d", ErrMalformed, sig)
	}
}

// afterCommandHeader handles DRV_COMMAND's extra wrinkle: its total size
// depends on a variable number of variable-length, length-prefixed
// arguments, so it cannot be computed from the fixed header alone. Once
// the header (cmd idx + argc) is in hand, Feed is re-armed one argument
// length-prefix at a time until every argument has arrived.
func (r *Reader) afterCommandHeader() (interface{}, error) {
	cmd, err := DecodeDrvCommand(r.buf)
	if err == ErrTruncated {
		r.need = r.nextCommandChunk()
		return nil, nil
	}
	r.reset()
	return cmd, err
}

// nextCommandChunk computes how many more bytes are needed to make
// progress decoding a partially-received DRV_COMMAND: either the next
// argument's one-byte length prefix, or the remainder of an argument
// whose prefix has already arrived.
func (r *Reader) nextCommandChunk() int {
	argc := order.Uint32(r.buf[SignatureSize+4:])
	off := SignatureSize + 8
	for i := uint32(0); i < argc; i++ {
		if off >= len(r.buf) {
			return off + 1 - len(r.buf)
		}
		l := int(r.buf[off])
		off++
		if off+l > len(r.buf) {
			return off + l - len(r.buf)
		}
		off += l
	}
	return 1
}
