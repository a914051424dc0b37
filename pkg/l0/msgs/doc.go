// Package msgs defines the messages exchanged with the firmware.
//
// Every message is a plain struct with its own field serializer. Messages
// travel inside L0 packets with code CodeMessage as the wire encoding of a
// Variant: Requests from the host, Replies from the firmware (prefixed by
// the request sequence by the link layer) and Events pushed by the
// firmware. The order of alternatives in each VariantType is the tag on
// the wire and must match the firmware.
package msgs
