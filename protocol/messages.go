// File: protocol/messages.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message types and their little-endian, packed wire encodings. Byte
// order is an explicit protocol choice (SPEC_FULL.md §9 resolves the
// spec's Open Question against inheriting host layout), not a
// reinterpreted Go struct.

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var order = binary.LittleEndian

// ErrTruncated is returned by Decode* when raw does not yet contain a
// complete message of the size its header declares.
var ErrTruncated = errors.New("protocol: message truncated")

// ErrMalformed is returned when a length field claims something the
// message plainly cannot hold.
var ErrMalformed = errors.New("protocol: malformed message")

// CommandDescriptor is one entry of a driver's command table, exchanged
// verbatim in a DRV_INFO message and used again as the shape of the
// commands vector the registry indexes by position.
type CommandDescriptor struct {
	Name  string
	Descr string
	Arity uint8
}

// DrvInfo is the message a driver sends immediately after connecting.
type DrvInfo struct {
	Commands []CommandDescriptor
}

// DrvCommand is the message the shell sends to invoke cmd Idx with Args.
type DrvCommand struct {
	CmdIdx uint32
	Args   [][]byte
}

// DrvResponse is the message a driver sends after executing a command.
type DrvResponse struct {
	Payload []byte
}

// EncodeDrvInfo serializes info, including the leading signature byte.
func EncodeDrvInfo(info *DrvInfo) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(SigDrvInfo))

	var n [4]byte
	order.PutUint32(n[:], uint32(len(info.Commands)))
	buf.Write(n[:])

	for _, c := range info.Commands {
		if len(c.Name) > MaxCommandNameLen {
			return nil, fmt.Errorf("%w: command name %q exceeds %d bytes", ErrMalformed, c.Name, MaxCommandNameLen)
		}
		if len(c.Descr) > MaxCommandDescriptionLen {
			return nil, fmt.Errorf("%w: command descr exceeds %d bytes", ErrMalformed, MaxCommandDescriptionLen)
		}
		var nameField_ [nameField]byte
		var descrField_ [descrField]byte
		copy(nameField_[:], c.Name)
		copy(descrField_[:], c.Descr)
		buf.Write(nameField_[:])
		buf.Write(descrField_[:])
		buf.WriteByte(c.Arity)
	}
	return buf.Bytes(), nil
}

// DecodeDrvInfo parses a complete DRV_INFO message, signature included.
// Returns ErrTruncated if raw's header declares more commands than raw
// currently holds — callers arm another Recv for the remainder.
func DecodeDrvInfo(raw []byte) (*DrvInfo, error) {
	if len(raw) < SignatureSize+4 {
		return nil, ErrTruncated
	}
	if Signature(raw[0]) != SigDrvInfo {
		return nil, fmt.Errorf("%w: expected DRV_INFO, got %s", ErrMalformed, Signature(raw[0]))
	}
	n := order.Uint32(raw[SignatureSize:])
	need := DrvInfoSize(int(n))
	if len(raw) < need {
		return nil, ErrTruncated
	}

	info := &DrvInfo{Commands: make([]CommandDescriptor, 0, n)}
	off := SignatureSize + 4
	for i := uint32(0); i < n; i++ {
		name := raw[off : off+nameField]
		descr := raw[off+nameField : off+nameField+descrField]
		arity := raw[off+nameField+descrField]
		info.Commands = append(info.Commands, CommandDescriptor{
			Name:  cString(name),
			Descr: cString(descr),
			Arity: arity,
		})
		off += cmdInfoSize
	}
	return info, nil
}

// DrvInfoSize returns the total wire size of a DRV_INFO message carrying
// n commands, signature included.
func DrvInfoSize(n int) int {
	return SignatureSize + 4 + n*cmdInfoSize
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// EncodeDrvCommand serializes cmd, including the leading signature byte.
func EncodeDrvCommand(cmd *DrvCommand) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(SigDrvCommand))

	var u32 [4]byte
	order.PutUint32(u32[:], cmd.CmdIdx)
	buf.Write(u32[:])
	order.PutUint32(u32[:], uint32(len(cmd.Args)))
	buf.Write(u32[:])

	for _, a := range cmd.Args {
		if len(a) > MaxArgLen {
			return nil, fmt.Errorf("%w: argument of %d bytes exceeds %d", ErrMalformed, len(a), MaxArgLen)
		}
		buf.WriteByte(byte(len(a)))
		buf.Write(a)
	}
	return buf.Bytes(), nil
}

// DecodeDrvCommand parses a complete DRV_COMMAND message.
func DecodeDrvCommand(raw []byte) (*DrvCommand, error) {
	if len(raw) < SignatureSize+8 {
		return nil, ErrTruncated
	}
	if Signature(raw[0]) != SigDrvCommand {
		return nil, fmt.Errorf("%w: expected DRV_COMMAND, got %s", ErrMalformed, Signature(raw[0]))
	}
	cmdIdx := order.Uint32(raw[SignatureSize:])
	argc := order.Uint32(raw[SignatureSize+4:])

	cmd := &DrvCommand{CmdIdx: cmdIdx, Args: make([][]byte, 0, argc)}
	off := SignatureSize + 8
	for i := uint32(0); i < argc; i++ {
		if off >= len(raw) {
			return nil, ErrTruncated
		}
		l := int(raw[off])
		off++
		if off+l > len(raw) {
			return nil, ErrTruncated
		}
		arg := make([]byte, l)
		copy(arg, raw[off:off+l])
		cmd.Args = append(cmd.Args, arg)
		off += l
	}
	return cmd, nil
}

// EncodeDrvResponse serializes resp, including the leading signature byte.
func EncodeDrvResponse(resp *DrvResponse) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(SigDrvResponse))

	var u32 [4]byte
	order.PutUint32(u32[:], uint32(len(resp.Payload)))
	buf.Write(u32[:])
	buf.Write(resp.Payload)
	return buf.Bytes(), nil
}

// DecodeDrvResponse parses a complete DRV_RESPONSE message.
func DecodeDrvResponse(raw []byte) (*DrvResponse, error) {
	if len(raw) < SignatureSize+4 {
		return nil, ErrTruncated
	}
	if Signature(raw[0]) != SigDrvResponse {
		return nil, fmt.Errorf("%w: expected DRV_RESPONSE, got %s", ErrMalformed, Signature(raw[0]))
	}
	length := order.Uint32(raw[SignatureSize:])
	need := DrvResponseSize(int(length))
	if len(raw) < need {
		return nil, ErrTruncated
	}
	payload := make([]byte, length)
	copy(payload, raw[SignatureSize+4:need])
	return &DrvResponse{Payload: payload}, nil
}

// DrvResponseSize returns the total wire size of a DRV_RESPONSE carrying a
// payload of the given length, signature included.
func DrvResponseSize(payloadLen int) int {
	return SignatureSize + 4 + payloadLen
}
