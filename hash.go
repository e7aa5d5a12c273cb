package main

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// HashFunc maps a key to a non-negative 31 bit value. Tables take one through
// WithHashFunc, which is where the hashing scheme can be swapped out.
type HashFunc func(key string) uint32

const hashMask = 0x7FFFFFFF

// Hash31 is the seed 7, multiplier 31 string hash. Bytes are added as signed
// chars, arithmetic wraps at 32 bits and the sign bit is cleared, so values are
// identical to the ones the frequency tables have always produced, non-ASCII
// keys included.
func Hash31(key string) uint32 {
	var h int32 = 7
	for i := 0; i < len(key); i++ {
		h = h*31 + int32(int8(key[i]))
	}
	return uint32(h) & hashMask
}

// HashXX folds xxhash into 31 bits. Spreads keys better than Hash31 but its
// bucket layout is not compatible with it.
func HashXX(key string) uint32 {
	h := xxhash.Sum64String(key)
	return uint32(h^(h>>32)) & hashMask
}

const (
	HasherJava31 = "java31"
	HasherXX     = "xxhash"
)

var ErrUnknownHasher = errors.New("unknown hasher")

// HasherByName resolves the hasher names accepted in config files.
func HasherByName(name string) (HashFunc, error) {
	switch strings.ToLower(name) {
	case "", HasherJava31:
		return Hash31, nil
	case HasherXX:
		return HashXX, nil
	}
	return nil, errors.Wrapf(ErrUnknownHasher, "%q", name)
}
