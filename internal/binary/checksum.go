package binary

import (
	"encoding/binary"
	"math/bits"
)

// Lookup3Checksum is Bob Jenkins' lookup3 hashlittle with an initial value
// of 0, the checksum of version 2 superblocks and object headers.
func Lookup3Checksum(data []byte) uint32 {
	le := binary.LittleEndian
	a := 0xdeadbeef + uint32(len(data))
	b, c := a, a

	// The last 1-12 bytes always go through the final mix, so a block
	// of exactly 12 is left for the tail.
	for len(data) > 12 {
		a += le.Uint32(data)
		b += le.Uint32(data[4:])
		c += le.Uint32(data[8:])
		a, b, c = lookup3Mix(a, b, c)
		data = data[12:]
	}
	if len(data) == 0 {
		return c
	}

	var tail [12]byte
	copy(tail[:], data)
	a += le.Uint32(tail[0:])
	b += le.Uint32(tail[4:])
	c += le.Uint32(tail[8:])
	return lookup3Final(a, b, c)
}

func lookup3Mix(a, b, c uint32) (uint32, uint32, uint32) {
	step := func(x, z *uint32, y uint32, k int) {
		*x -= *z
		*x ^= bits.RotateLeft32(*z, k)
		*z += y
	}
	step(&a, &c, b, 4)
	step(&b, &a, c, 6)
	step(&c, &b, a, 8)
	step(&a, &c, b, 16)
	step(&b, &a, c, 19)
	step(&c, &b, a, 4)
	return a, b, c
}

func lookup3Final(a, b, c uint32) uint32 {
	fold := func(x *uint32, y uint32, k int) {
		*x ^= y
		*x -= bits.RotateLeft32(y, k)
	}
	fold(&c, b, 14)
	fold(&a, c, 11)
	fold(&b, a, 25)
	fold(&c, b, 16)
	fold(&a, c, 4)
	fold(&b, a, 14)
	fold(&c, b, 24)
	return c
}

// Fletcher32 is the checksum of the Fletcher-32 filter: big-endian 16-bit
// words, sums folded every 360 words, an odd trailing byte taken as the
// high half of a word.
func Fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32
	fold := func() {
		sum1 = sum1&0xffff + sum1>>16
		sum2 = sum2&0xffff + sum2>>16
	}

	for len(data) >= 2 {
		n := min(len(data)/2, 360)
		for i := 0; i < n; i++ {
			sum1 += uint32(binary.BigEndian.Uint16(data[2*i:]))
			sum2 += sum1
		}
		data = data[2*n:]
		fold()
	}
	if len(data) == 1 {
		sum1 += uint32(data[0]) << 8
		sum2 += sum1
		fold()
	}
	fold()
	return sum2<<16 | sum1
}
