package content

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/containerd/containerd/v2/core/content"
	"github.com/containerd/errdefs"
	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// BlobInfo describes a single blob present in the store.
type BlobInfo struct {
	Digest digest.Digest
	Size   int64
}

// Client is a thin wrapper around a containerd content.Store.
type Client struct {
	store content.Store
}

// New wraps an existing content store.
func New(store content.Store) *Client {
	return &Client{store: store}
}

// ListContent enumerates every blob in the store, with no filter and no
// pagination; callers that need backpressure should range over a bounded
// buffer built from the returned slice.
func (c *Client) ListContent(ctx context.Context) ([]BlobInfo, error) {
	var blobs []BlobInfo
	err := c.store.Walk(ctx, func(info content.Info) error {
		blobs = append(blobs, BlobInfo{Digest: info.Digest, Size: info.Size})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blobs, nil
}

// Chunk is one piece of a layer being streamed into the store. Offset is the
// byte offset the chunk starts at; writers are expected to supply chunks in
// order, since the underlying write session tracks position monotonically.
type Chunk struct {
	Offset int64
	Data   []byte
}

// WriteLayer opens a write session for ref (expected to be the blob's
// digest), streams every chunk from chunks in order, and commits at size
// bytes under expected. An alreadyExists outcome on open or commit is
// swallowed: the blob was already present and the write is a no-op.
func (c *Client) WriteLayer(ctx context.Context, ref string, expected digest.Digest, size int64, chunks <-chan Chunk) error {
	w, err := c.store.Writer(ctx, content.WithRef(ref), content.WithDescriptor(ocispec.Descriptor{Digest: expected, Size: size}))
	if err != nil {
		if errdefs.IsAlreadyExists(err) {
			return nil
		}
		return err
	}
	defer w.Close()

	var offset int64
	for chunk := range chunks {
		if chunk.Offset != offset {
			return fmt.Errorf("content: out-of-order chunk at offset %d, writer at %d", chunk.Offset, offset)
		}
		n, err := w.Write(chunk.Data)
		if err != nil {
			return err
		}
		offset += int64(n)
	}

	if err := w.Commit(ctx, size, expected); err != nil {
		if errdefs.IsAlreadyExists(err) {
			return nil
		}
		return err
	}
	return nil
}

// UploadJSON serializes value with Go's stable map-key ordering, computes its
// SHA-256 digest, and writes it as a single-chunk layer keyed by the hex
// digest. It returns the digest and byte length of the encoded value.
func (c *Client) UploadJSON(ctx context.Context, value any) (digest.Digest, int64, error) {
	b, d, err := marshalDigest(value)
	if err != nil {
		return "", 0, err
	}

	chunks := make(chan Chunk, 1)
	chunks <- Chunk{Offset: 0, Data: b}
	close(chunks)

	if err := c.WriteLayer(ctx, d.Encoded(), d, int64(len(b)), chunks); err != nil {
		return "", 0, err
	}
	return d, int64(len(b)), nil
}

// marshalDigest encodes value as JSON and computes its SHA-256 digest.
func marshalDigest(value any) ([]byte, digest.Digest, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(b)
	return b, digest.NewDigestFromBytes(digest.SHA256, sum[:]), nil
}
