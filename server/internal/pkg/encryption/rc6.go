package encryption

import (
	"encoding/binary"
	"math/bits"
)

const (
	rc6Rounds = 20
	rc6Words  = 2*rc6Rounds + 4 // 44 round-key words

	rc6P32 = uint32(0xB7E15163)
	rc6Q32 = uint32(0x9E3779B9)
)

var rc6KeySizes = []int{16, 24, 32}

// RC6 is RC6-32/20/b: 32-bit words (128-bit blocks), 20 rounds, b-byte key.
type RC6 struct {
	s []uint32
}

// NewRC6 creates an unkeyed RC6 cipher
func NewRC6() *RC6 {
	return &RC6{}
}

// BlockSize returns the block size of RC6
func (r *RC6) BlockSize() int {
	return RC6BlockSize
}

// KeySizes returns the supported key sizes of RC6
func (r *RC6) KeySizes() []int {
	return rc6KeySizes
}

// Init expands key into the round-key schedule
func (r *RC6) Init(key []byte) error {
	if err := CheckKeySize(key, rc6KeySizes); err != nil {
		return err
	}
	r.s = expandRC6Key(key)
	return nil
}

// Encrypt encrypts a 128-bit block
func (r *RC6) Encrypt(plaintext []byte) ([]byte, error) {
	if r.s == nil {
		return nil, ErrNotInitialized
	}
	if err := CheckBlock(plaintext, RC6BlockSize); err != nil {
		return nil, err
	}

	a := binary.LittleEndian.Uint32(plaintext[0:4])
	b := binary.LittleEndian.Uint32(plaintext[4:8])
	c := binary.LittleEndian.Uint32(plaintext[8:12])
	d := binary.LittleEndian.Uint32(plaintext[12:16])

	b += r.s[0]
	d += r.s[1]

	for i := 1; i <= rc6Rounds; i++ {
		t := bits.RotateLeft32(b*(2*b+1), 5)
		u := bits.RotateLeft32(d*(2*d+1), 5)
		a = bits.RotateLeft32(a^t, int(u%32)) + r.s[2*i]
		c = bits.RotateLeft32(c^u, int(t%32)) + r.s[2*i+1]

		a, b, c, d = b, c, d, a
	}

	a += r.s[2*rc6Rounds+2]
	c += r.s[2*rc6Rounds+3]

	ciphertext := make([]byte, RC6BlockSize)
	binary.LittleEndian.PutUint32(ciphertext[0:4], a)
	binary.LittleEndian.PutUint32(ciphertext[4:8], b)
	binary.LittleEndian.PutUint32(ciphertext[8:12], c)
	binary.LittleEndian.PutUint32(ciphertext[12:16], d)

	return ciphertext, nil
}

// Decrypt decrypts a 128-bit block
func (r *RC6) Decrypt(ciphertext []byte) ([]byte, error) {
	if r.s == nil {
		return nil, ErrNotInitialized
	}
	if err := CheckBlock(ciphertext, RC6BlockSize); err != nil {
		return nil, err
	}

	a := binary.LittleEndian.Uint32(ciphertext[0:4])
	b := binary.LittleEndian.Uint32(ciphertext[4:8])
	c := binary.LittleEndian.Uint32(ciphertext[8:12])
	d := binary.LittleEndian.Uint32(ciphertext[12:16])

	c -= r.s[2*rc6Rounds+3]
	a -= r.s[2*rc6Rounds+2]

	for i := rc6Rounds; i >= 1; i-- {
		a, b, c, d = d, a, b, c

		u := bits.RotateLeft32(d*(2*d+1), 5)
		t := bits.RotateLeft32(b*(2*b+1), 5)
		c = bits.RotateLeft32(c-r.s[2*i+1], -int(t%32)) ^ u
		a = bits.RotateLeft32(a-r.s[2*i], -int(u%32)) ^ t
	}

	d -= r.s[1]
	b -= r.s[0]

	plaintext := make([]byte, RC6BlockSize)
	binary.LittleEndian.PutUint32(plaintext[0:4], a)
	binary.LittleEndian.PutUint32(plaintext[4:8], b)
	binary.LittleEndian.PutUint32(plaintext[8:12], c)
	binary.LittleEndian.PutUint32(plaintext[12:16], d)

	return plaintext, nil
}

// expandRC6Key mixes the user key into the magic-constant schedule
func expandRC6Key(key []byte) []uint32 {
	c := (len(key) + 3) / 4
	l := make([]uint32, c)
	for i := 0; i < len(key); i++ {
		l[i/4] |= uint32(key[i]) << uint((i%4)*8)
	}

	s := make([]uint32, rc6Words)
	s[0] = rc6P32
	for i := 1; i < rc6Words; i++ {
		s[i] = s[i-1] + rc6Q32
	}

	a, b := uint32(0), uint32(0)
	i, j := 0, 0
	for k := 0; k < 3*rc6Words; k++ {
		s[i] = bits.RotateLeft32(s[i]+a+b, 3)
		a = s[i]
		l[j] = bits.RotateLeft32(l[j]+a+b, int((a+b)%32))
		b = l[j]
		i = (i + 1) % rc6Words
		j = (j + 1) % c
	}
	return s
}
