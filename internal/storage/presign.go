// Package storage issues presigned object-storage URLs so graph uploads
// bypass the application server entirely. Only signing happens here; the
// payload never touches this process.
package storage

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PutExpiry is how long an issued upload URL stays valid.
const PutExpiry = time.Hour

// Client signs PUT URLs against one bucket of an S3-compatible store.
type Client struct {
	mc     *minio.Client
	bucket string
}

// New connects a signing client. No network call happens here; credentials
// are only exercised when a URL is signed.
func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &Client{mc: mc, bucket: bucket}, nil
}

// PresignPut returns a time-boxed URL authorizing a single PUT of the given
// key. The content type is pinned to JSON in the signature, so the client
// cannot upload under a different type.
func (c *Client) PresignPut(ctx context.Context, key string) (string, error) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	u, err := c.mc.PresignHeader(ctx, http.MethodPut, c.bucket, key, PutExpiry, url.Values{}, hdr)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// GraphKey derives the object key for a user's graph upload. The namespace
// is partitioned per user, so filename collisions across users cannot
// overwrite each other's objects; a user overwriting their own prior upload
// is allowed and silent.
func GraphKey(userID, filename string) string {
	return "user-graphs/" + userID + "/" + filename
}
