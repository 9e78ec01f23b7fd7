package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Job IDs are ULIDs: a 48-bit millisecond timestamp followed by 80 bits of
// randomness, written as 26 Crockford base32 characters. IDs minted in the
// same millisecond carry an increasing counter in their first random bytes
// so they still sort in creation order.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var ulidGen struct {
	sync.Mutex
	ms  uint64
	seq uint16
}

func generateULID() string {
	return ulidAt(time.Now())
}

func ulidAt(t time.Time) string {
	ulidGen.Lock()
	ms := uint64(t.UnixMilli())
	if ms == ulidGen.ms {
		ulidGen.seq++
	} else {
		ulidGen.ms = ms
		ulidGen.seq = 0
	}
	seq := ulidGen.seq
	ulidGen.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ms<<16)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeULID(b)
}

// encodeULID writes the 128 bits of b as 26 base32 digits, most
// significant first. The leading digit holds only the top 3 bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
