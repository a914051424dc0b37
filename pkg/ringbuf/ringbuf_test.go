package ringbuf

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/avr.go/pkg/wire"
)

func TestNew(t *testing.T) {
	require.Panics(t, func() { New(0) })
	require.Panics(t, func() { New(1) })
	b := New(2)
	require.Equal(t, 2, b.Capacity())
	require.True(t, b.IsEmpty())
	require.False(t, b.IsFull())
	require.Equal(t, 0, b.Available())
}

func TestByteOps(t *testing.T) {
	b := New(3)
	_, err := b.ReadByte()
	require.Equal(t, ErrEmpty, err)

	require.NoError(t, b.WriteByte(1))
	require.NoError(t, b.WriteByte(2))
	require.NoError(t, b.WriteByte(3))
	require.True(t, b.IsFull())
	require.Equal(t, 3, b.Available())
	require.Equal(t, ErrFull, b.WriteByte(4))

	c, err := b.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(1), c)
	require.False(t, b.IsFull())
	require.Equal(t, 2, b.Available())

	// wrap around
	require.NoError(t, b.WriteByte(4))
	for _, expect := range []byte{2, 3, 4} {
		c, err = b.ReadByte()
		require.NoError(t, err)
		require.Equal(t, expect, c)
	}
	require.True(t, b.IsEmpty())

	require.NoError(t, b.WriteByte(5))
	b.Clear()
	require.True(t, b.IsEmpty())
	require.Equal(t, 0, b.Available())
}

func TestReadWrite(t *testing.T) {
	b := New(4)
	n, err := b.Write([]byte{1, 2, 3, 4, 5, 6})
	require.Equal(t, ErrFull, err)
	require.Equal(t, 4, n)

	p := make([]byte, 3)
	n, err = b.Read(p)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []byte{1, 2, 3}, p)

	n, err = b.Write([]byte{7, 8})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	p = make([]byte, 8)
	n, err = b.Read(p)
	require.NoError(t, err)
	require.Equal(t, []byte{4, 7, 8}, p[:n])

	_, err = b.Read(p)
	require.Equal(t, ErrEmpty, err)
	n, err = b.Read(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestWireCursor(t *testing.T) {
	b := New(8)
	v := uint32(0x01020304)
	require.Equal(t, wire.Some(4), wire.Uint32.Serialize(&v, b))
	require.Equal(t, 4, b.Available())

	var out uint16
	require.Equal(t, wire.Some(2), wire.Uint16.Deserialize(&out, b))
	require.Equal(t, uint16(0x0102), out)

	// ReadByte reports ErrEmpty after the remaining 2 bytes.
	require.False(t, wire.Uint32.Deserialize(&v, b).HasValue())
	require.True(t, b.IsEmpty())
}

func TestConcurrent(t *testing.T) {
	const total = 1000
	b := New(16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < total; {
			if b.WriteByte(byte(n)) != nil {
				runtime.Gosched()
				continue
			}
			n++
		}
	}()
	for n := 0; n < total; {
		c, err := b.ReadByte()
		if err != nil {
			runtime.Gosched()
			continue
		}
		require.Equal(t, byte(n), c)
		n++
	}
	wg.Wait()
	require.True(t, b.IsEmpty())
}

func TestFree(t *testing.T) {
	b := New(4)
	require.Equal(t, 4, b.Free())
	_, err := b.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 1, b.Free())
	_, err = b.ReadByte()
	require.NoError(t, err)
	require.Equal(t, 2, b.Free())
	b.Clear()
	require.Equal(t, 4, b.Free())
}
