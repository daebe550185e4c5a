// File: protocol/constants.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

// Signature is the leading byte of every protocol message.
type Signature uint8

const (
	// SigDrvInfo is sent unsolicited by a driver as the first message
	// after the client connects.
	SigDrvInfo Signature = 1
	// SigDrvCommand is sent by the shell to invoke a command.
	SigDrvCommand Signature = 2
	// SigDrvResponse is sent by the driver after executing a command.
	SigDrvResponse Signature = 3
)

func (s Signature) String() string {
	switch s {
	case SigDrvInfo:
		return "DRV_INFO"
	case SigDrvCommand:
		return "DRV_COMMAND"
	case SigDrvResponse:
		return "DRV_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

const (
	// MaxCommandNameLen bounds a command's name, excluding the
	// null terminator the wire representation reserves for it.
	MaxCommandNameLen = 31
	// MaxCommandDescriptionLen bounds a command's human description.
	MaxCommandDescriptionLen = 63
	// MaxArgLen is the largest single command argument, imposed by the
	// wire's one-byte length prefix.
	MaxArgLen = 255

	// SignatureSize is the wire size of the leading Signature byte.
	SignatureSize = 1

	nameField  = MaxCommandNameLen + 1
	descrField = MaxCommandDescriptionLen + 1
	cmdInfoSize = nameField + descrField + 1 // name + descr + arity
)
