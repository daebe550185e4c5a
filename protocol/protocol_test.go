// File: protocol/protocol_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDrvInfoRoundTrip(t *testing.T) {
	info := &DrvInfo{Commands: []CommandDescriptor{
		{Name: "on", Descr: "turn it on", Arity: 0},
		{Name: "set", Descr: "set a value", Arity: 1},
	}}

	raw, err := EncodeDrvInfo(info)
	require.NoError(t, err)
	require.Equal(t, DrvInfoSize(2), len(raw))

	got, err := DecodeDrvInfo(raw)
	require.NoError(t, err)
	require.Equal(t, info, got)
}

func TestDrvInfoRejectsOversizedFields(t *testing.T) {
	_, err := EncodeDrvInfo(&DrvInfo{Commands: []CommandDescriptor{
		{Name: "this-name-is-far-too-long-for-the-wire-format", Arity: 0},
	}})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDrvCommandRoundTrip(t *testing.T) {
	cmd := &DrvCommand{CmdIdx: 3, Args: [][]byte{[]byte("hello"), []byte("world")}}

	raw, err := EncodeDrvCommand(cmd)
	require.NoError(t, err)

	got, err := DecodeDrvCommand(raw)
	require.NoError(t, err)
	require.Equal(t, cmd, got)
}

func TestDrvResponseRoundTrip(t *testing.T) {
	resp := &DrvResponse{Payload: []byte("ok")}

	raw, err := EncodeDrvResponse(resp)
	require.NoError(t, err)
	require.Equal(t, DrvResponseSize(len(resp.Payload)), len(raw))

	got, err := DecodeDrvResponse(raw)
	require.NoError(t, err)
	require.Equal(t, resp, got)
}

func TestDecodeReportsTruncation(t *testing.T) {
	raw, err := EncodeDrvResponse(&DrvResponse{Payload: []byte("hello")})
	require.NoError(t, err)

	_, err = DecodeDrvResponse(raw[:len(raw)-2])
	require.ErrorIs(t, err, ErrTruncated)
}

func TestReaderFeedsIncrementally(t *testing.T) {
	resp := &DrvResponse{Payload: []byte("pong")}
	raw, err := EncodeDrvResponse(resp)
	require.NoError(t, err)

	r := NewReader()
	var msg interface{}
	off := 0
	for msg == nil {
		n := r.Need()
		require.LessOrEqual(t, off+n, len(raw), "reader asked for more than the test has to feed")
		var decErr error
		msg, decErr = r.Feed(raw[off : off+n])
		require.NoError(t, decErr)
		off += n
	}

	got, ok := msg.(*DrvResponse)
	require.True(t, ok)
	require.Equal(t, resp, got)
	require.Equal(t, len(raw), off)
}

func TestReaderHandlesMultipleCommandArguments(t *testing.T) {
	cmd := &DrvCommand{CmdIdx: 1, Args: [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}}
	raw, err := EncodeDrvCommand(cmd)
	require.NoError(t, err)

	r := NewReader()
	var msg interface{}
	off := 0
	for msg == nil {
		n := r.Need()
		var decErr error
		msg, decErr = r.Feed(raw[off : off+n])
		require.NoError(t, decErr)
		off += n
	}

	got, ok := msg.(*DrvCommand)
	require.True(t, ok)
	require.Equal(t, cmd, got)
}

func TestReaderRejectsUnknownSignature(t *testing.T) {
	r := NewReader()
	_, err := r.Feed([]byte{0xFF})
	require.ErrorIs(t, err, ErrMalformed)
}
