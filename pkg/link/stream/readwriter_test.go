package stream

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{0, 3, 1, 2, 3, 0, 0}, buf.Bytes())
}

func TestReadPackets(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{0, 2, 0xa, 0xb, 0, 0, 0, 1, 0xc}))
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0xa, 0xb}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0xc}, pkt)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestReadTruncated(t *testing.T) {
	_, err := New(bytes.NewBuffer([]byte{0, 4, 1, 2})).ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
	_, err = New(bytes.NewBuffer([]byte{0, 4})).ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
	_, err = New(bytes.NewBuffer([]byte{0})).ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestPacketTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.ErrorIs(t, New(&buf).WritePacket(make([]byte, MaxPacketSize+1)), ErrPacketTooLarge)
	require.Zero(t, buf.Len())
}

func TestOverPipe(t *testing.T) {
	a, b := net.Pipe()
	ra, rb := New(a), New(b)
	defer ra.Close()
	defer rb.Close()
	go func() {
		ra.WritePacket([]byte("hello"))
	}()
	pkt, err := rb.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, "hello", string(pkt))
	require.NoError(t, ra.Close())
	_, err = rb.ReadPacket()
	require.Error(t, err)
}
