// Package cipher implements the XXTEA-family block cipher that protects the
// meta blocks of Steam, GOG and PlayStation saves.
//
// The cipher works in place on a little-endian uint32 view of the block.
// Word 0 of the key is derived from the persistent storage slot the block
// belongs to, so a block can only be decrypted with the key of the slot it
// was written for. [DecryptSearch] exploits that to recover blocks that were
// moved between slots.
package cipher

import (
	"encoding/binary"
	"math/bits"

	"github.com/thoreinstein/nmsio/internal/errors"
)

const (
	delta    uint32 = 0x9E3779B9
	negDelta uint32 = 0x61C88647

	keySeed uint32 = 0x1422CB8C
	keyMul  uint32 = 5
	keyAdd  uint32 = 0xE6546B64

	// RoundsVanilla is used for the shortest (pre-Waypoint) meta layout.
	RoundsVanilla = 8
	// RoundsExtended is used for every longer meta layout.
	RoundsExtended = 6
)

// ErrBlockLength is returned for blocks that are not a whole number of words
// or are shorter than two words.
var ErrBlockLength = errors.New("cipher block must be at least 8 bytes and a multiple of 4")

// Key is the 4-word base key of a platform.
type Key [4]uint32

// KeyFromString builds a base key from a 16 byte ASCII string read as four
// little-endian words.
func KeyFromString(s string) Key {
	var k Key
	b := []byte(s)
	for i := range k {
		if len(b) >= (i+1)*4 {
			k[i] = binary.LittleEndian.Uint32(b[i*4:])
		}
	}
	return k
}

// ForSlot returns a copy of the base key with word 0 bound to slot.
func (k Key) ForSlot(slot uint32) Key {
	out := k
	out[0] = bits.RotateLeft32(slot^keySeed, 13)*keyMul + keyAdd
	return out
}

// Rounds returns the number of rounds for a block of the given byte length.
func Rounds(length, vanillaLength int) int {
	if length == vanillaLength {
		return RoundsVanilla
	}
	return RoundsExtended
}

// Words reinterprets b as little-endian uint32 words.
func Words(b []byte) []uint32 {
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return w
}

// Bytes is the inverse of Words.
func Bytes(w []uint32) []byte {
	b := make([]byte, len(w)*4)
	for i, v := range w {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

func mx(cur, prev, sum uint32, key Key, p int, e uint32) uint32 {
	j1 := (cur >> 3) ^ (prev << 4)
	j2 := (cur * 4) ^ (prev >> 5)
	j3 := prev ^ key[uint32(p&3)^e]
	j4 := cur ^ sum
	return (j1 + j2) ^ (j3 + j4)
}

// EncryptWords encrypts v in place.
func EncryptWords(v []uint32, key Key, rounds int) {
	n := len(v)
	if n < 2 {
		return
	}
	last := n - 1
	var sum uint32
	prev := v[last]
	for range rounds {
		sum -= negDelta
		e := (sum >> 2) & 3
		for p := 0; p < last; p++ {
			cur := v[p+1]
			v[p] += mx(cur, prev, sum, key, p, e)
			prev = v[p]
		}
		cur := v[0]
		v[last] += mx(cur, prev, sum, key, last, e)
		prev = v[last]
	}
}

// DecryptWords decrypts v in place.
func DecryptWords(v []uint32, key Key, rounds int) {
	n := len(v)
	if n < 2 {
		return
	}
	last := n - 1
	sum := uint32(rounds) * delta
	cur := v[0]
	for range rounds {
		e := (sum >> 2) & 3
		for p := last; p > 0; p-- {
			prev := v[p-1]
			v[p] -= mx(cur, prev, sum, key, p, e)
			cur = v[p]
		}
		prev := v[last]
		v[0] -= mx(cur, prev, sum, key, 0, e)
		cur = v[0]
		sum += negDelta
	}
}

// Encrypt returns an encrypted copy of block.
func Encrypt(block []byte, key Key, slot uint32, rounds int) ([]byte, error) {
	if err := checkLength(block); err != nil {
		return nil, err
	}
	w := Words(block)
	EncryptWords(w, key.ForSlot(slot), rounds)
	return Bytes(w), nil
}

// Decrypt returns a decrypted copy of block.
func Decrypt(block []byte, key Key, slot uint32, rounds int) ([]byte, error) {
	if err := checkLength(block); err != nil {
		return nil, err
	}
	w := Words(block)
	DecryptWords(w, key.ForSlot(slot), rounds)
	return Bytes(w), nil
}

func checkLength(block []byte) error {
	if len(block) < 8 || len(block)%4 != 0 {
		return errors.Wrapf(ErrBlockLength, "got %d bytes", len(block))
	}
	return nil
}
