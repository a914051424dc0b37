// Package comm implements the L0 link between the host and the firmware.
//
// The link runs over any byte stream (a serial port, or a TCP socket
// bridged to one) and only guards against lost or corrupted framing: both
// peers number their packets, and any unexpected byte makes the receiver
// request a resync. There is no checksum; enable parity on the serial
// port if bit errors matter.
//
// Sync:    0xff seq (request), 0xfe seq (acknowledge)
// Packet:  seq code len data...
//
// seq runs from 1 to 0xef and wraps to 1. Bit 7 of code marks an event
// sent by the firmware, bit 6 marks a failed command in a reply. The data
// of a reply starts with the sequence number of the request it answers.
package comm
