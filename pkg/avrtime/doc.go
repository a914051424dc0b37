// Package avrtime provides the calendar and timestamp types exchanged with
// the firmware, together with their wire serializers.
package avrtime
