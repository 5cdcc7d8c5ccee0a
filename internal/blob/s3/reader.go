package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// ObjectInfo describes one archived market data file.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Reader reads back what the Archiver uploaded. The monitoring API uses it
// to list and download archived daily CSVs.
type Reader struct {
	client *s3.Client
	bucket string
}

// NewReader creates a Reader over the client's configured bucket.
func NewReader(c *Client) *Reader {
	return &Reader{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// List returns every object under prefix, newest first. Pagination is
// followed to the end before sorting.
func (r *Reader) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list prefix %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})
	return infos, nil
}

// Open streams the object at key. The caller closes the returned reader.
// Returns domain.ErrNotFound when no such object exists.
func (r *Reader) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	output, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3blob: open %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3blob: open %s: %w", key, err)
	}
	return output.Body, nil
}

// isNotFound matches the SDK's typed missing-object errors plus the bare
// 404 some S3-compatible providers return.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	type statusError interface {
		HTTPStatusCode() int
	}
	var se statusError
	return errors.As(err, &se) && se.HTTPStatusCode() == 404
}
