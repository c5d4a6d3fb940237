package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"

	"github.com/cespare/xxhash"
	"github.com/minio/highwayhash"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

// highwayKey is the fixed 256-bit key used for HighwayHash digests. Digests
// are only compared within one run, so a constant key is enough.
var highwayKey = mustDecodeHex("000102030405060708090A0B0C0D0E0FF0E0D0C0B0A090807060504030201000")

// Algorithm describes a streaming digest usable by ContentHasher
type Algorithm struct {
	Name    string
	Size    int
	NewFunc func() hash.Hash
}

var algorithms = map[string]*Algorithm{
	"md5": {
		Name:    "md5",
		Size:    md5.Size,
		NewFunc: md5.New,
	},
	"sha1": {
		Name:    "sha1",
		Size:    sha1.Size,
		NewFunc: sha1.New,
	},
	"sha256": {
		Name:    "sha256",
		Size:    sha256.Size,
		NewFunc: sha256.New,
	},
	"xxh3": {
		Name:    "xxh3",
		Size:    16,
		NewFunc: func() hash.Hash { return xxh3.New128() },
	},
	"xxhash": {
		Name:    "xxhash",
		Size:    8,
		NewFunc: func() hash.Hash { return xxhash.New() },
	},
	"blake3": {
		Name:    "blake3",
		Size:    32,
		NewFunc: func() hash.Hash { return blake3.New() },
	},
	"highwayhash": {
		Name: "highwayhash",
		Size: highwayhash.Size128,
		NewFunc: func() hash.Hash {
			h, err := highwayhash.New128(highwayKey)
			if err != nil {
				// only fails on a key that is not 32 bytes
				panic(err)
			}
			return h
		},
	},
}

// GetAlgorithm returns the algorithm registered under name (case-insensitive)
func GetAlgorithm(name string) (*Algorithm, error) {
	algo, ok := algorithms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownAlgorithm, name)
	}
	return algo, nil
}

// Algorithms lists the registered algorithm names in order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
