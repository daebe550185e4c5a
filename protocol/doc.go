// Package protocol implements the length-prefixed, little-endian wire
// codec for the three driver-shell message signatures: DRV_INFO,
// DRV_COMMAND, DRV_RESPONSE. Grounded on core/protocol/frame_codec.go's
// explicit-encoding-over-memory-layout style from the teacher.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package protocol
