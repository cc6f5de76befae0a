package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	// Packages
	imaging "github.com/disintegration/imaging"
	otel "github.com/mutablelogic/go-client/pkg/otel"
	schema "github.com/mutablelogic/go-gateway/pkg/schema"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	ref "github.com/mutablelogic/go-server/pkg/ref"
	semaphore "golang.org/x/sync/semaphore"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Downloader retrieves an object body from the backend. It is satisfied
// by the download relay.
type Downloader interface {
	Open(ctx context.Context, bucket, key string) (*schema.DownloadMeta, io.ReadCloser, error)
}

// Cache generates and serves thumbnail renditions of uploaded images,
// keyed by content fingerprint so renditions survive object overwrites
// with identical content.
type Cache struct {
	opts
	store      Store
	downloader Downloader
	sem        *semaphore.Weighted
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// ErrGenerate indicates the thumbnail could not be produced from the
// source object.
var ErrGenerate = errors.New("artifact generation failed")

const (
	// TTL is the sliding retention window for cached renditions.
	TTL = 30 * 24 * time.Hour

	// jpegQuality is the encode quality for generated thumbnails.
	jpegQuality = 80
)

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates an artifact cache over the given store and downloader.
// Concurrent resize work is bounded by the number of CPUs.
func New(store Store, downloader Downloader, opt ...Opt) (*Cache, error) {
	o, err := applyOpts(opt)
	if err != nil {
		return nil, err
	}
	return &Cache{
		opts:       o,
		store:      store,
		downloader: downloader,
		sem:        semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Key returns the store key for a fingerprint and variant pair.
func Key(fingerprint, variant string) string {
	return "artifact:" + fingerprint + ":" + variant
}

// GetOrGenerate returns the rendition blob for a fingerprint and variant,
// generating and caching it on a miss. A hit refreshes the retention
// window. Store failures are tolerated: the cache degrades to generating
// on every request rather than failing it.
func (c *Cache) GetOrGenerate(ctx context.Context, fingerprint, bucket, key, variant string) ([]byte, error) {
	if fingerprint == "" {
		return nil, httpresponse.ErrBadRequest.With("missing fingerprint")
	}
	if !schema.IsImagePath(key) {
		return nil, httpresponse.ErrBadRequest.Withf("not an image: %q", key)
	}
	v, exists := VariantByName(variant)
	if !exists {
		return nil, httpresponse.ErrBadRequest.Withf("unknown variant: %q", variant)
	}

	// Trace the operation
	var result error
	child, endFunc := otel.StartSpan(c.tracer, ctx, "artifact.GetOrGenerate")
	defer func() { endFunc(result) }()
	ctx = child

	cacheKey := Key(fingerprint, v.Name)
	blob, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		ref.Log(ctx).With("key", cacheKey).Debugf(ctx, "store get failed: %v", err)
	}
	if blob != nil {
		if err := c.store.RefreshTTL(ctx, cacheKey, TTL); err != nil {
			ref.Log(ctx).With("key", cacheKey).Debugf(ctx, "ttl refresh failed: %v", err)
		}
		return blob, nil
	}

	// Miss: pull the source object and render
	blob, err = c.generate(ctx, bucket, key, v)
	if err != nil {
		result = err
		return nil, err
	}
	if err := c.store.SetWithTTL(ctx, cacheKey, blob, TTL); err != nil {
		ref.Log(ctx).With("key", cacheKey).Debugf(ctx, "store set failed: %v", err)
	}

	// Return success
	return blob, nil
}

// Warm generates and caches every default variant for an object. It
// implements the session manager's warmer hook, running after an image
// upload completes. Variants already cached are skipped.
func (c *Cache) Warm(ctx context.Context, fingerprint, bucket, key string) error {
	var result error
	for _, v := range DefaultVariants {
		exists, err := c.store.Exists(ctx, Key(fingerprint, v.Name))
		if err == nil && exists {
			continue
		}
		if _, err := c.GetOrGenerate(ctx, fingerprint, bucket, key, v.Name); err != nil {
			result = errors.Join(result, err)
		}
	}
	return result
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// generate downloads the source object, decodes it and renders a
// cover-cropped JPEG at the variant dimensions. Resizes are serialized
// through a CPU-bounded semaphore.
func (c *Cache) generate(ctx context.Context, bucket, key string, v Variant) ([]byte, error) {
	_, body, err := c.downloader.Open(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGenerate, err)
	}
	defer body.Close()

	// The whole object is decoded in memory; thumbnails are only
	// generated for image uploads, which are bounded in practice.
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGenerate, err)
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGenerate, err)
	}

	// Cover-crop: fill the target box, cropping centred overflow
	thumb := imaging.Fill(img, v.Width, v.Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGenerate, err)
	}

	// Return success
	return buf.Bytes(), nil
}
