package hasher

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"
	"github.com/ZanzyTHEbar/dupfs/dupfs/trees"
)

// ContentHasher digests file content through a fixed-size read buffer.
// It is safe for concurrent use; each call gets its own digest state and
// buffers are recycled through a pool.
type ContentHasher struct {
	algorithm  *Algorithm
	bufferSize int
	buffers    sync.Pool
}

// New creates a ContentHasher for the named algorithm and chunk size.
func New(algorithm string, bufferSize int) (*ContentHasher, error) {
	algo, err := GetAlgorithm(algorithm)
	if err != nil {
		return nil, common.NewConfigError("algorithm", err)
	}
	if bufferSize < 1 {
		return nil, common.NewConfigError("buffer size", common.ErrInvalidBufferSize)
	}

	h := &ContentHasher{
		algorithm:  algo,
		bufferSize: bufferSize,
	}
	h.buffers.New = func() any {
		buf := make([]byte, h.bufferSize)
		return &buf
	}
	return h, nil
}

// Algorithm returns the digest in use.
func (h *ContentHasher) Algorithm() *Algorithm {
	return h.algorithm
}

// Hash digests ref. With full unset at most limit bytes are read, fewer when
// the file is shorter; with full set the whole file is read and limit is
// ignored. A failed open or read returns an IOError and no hash.
func (h *ContentHasher) Hash(ctx context.Context, ref trees.FileRef, limit int64, full bool) (types.ContentHash, error) {
	if !full && limit < 1 {
		return "", common.NewConfigError("prefix limit", common.ErrInvalidPrefixLimit)
	}

	file, err := os.Open(ref.Path)
	if err != nil {
		return "", common.NewIOError("open", ref.Path, err)
	}
	defer file.Close()

	digest := h.algorithm.NewFunc()
	bufPtr := h.buffers.Get().(*[]byte)
	defer h.buffers.Put(bufPtr)
	buffer := *bufPtr

	remaining := limit
	for full || remaining > 0 {
		// Check for cancellation before each read
		if err := ctx.Err(); err != nil {
			return "", err
		}

		chunk := buffer
		if !full && int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		n, err := file.Read(chunk)
		if n > 0 {
			digest.Write(chunk[:n])
			remaining -= int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", common.NewIOError("read", ref.Path, err)
		}
	}

	return types.NewContentHash(digest.Sum(nil)), nil
}
