package blob

import (
	"context"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/aws/s3"
)

// S3Store adapts an S3 client to Store.
// The write-once check is a HEAD before PUT and is not atomic.
type S3Store struct {
	client s3.BasicClient
}

func NewS3Store(client s3.BasicClient) *S3Store {
	return &S3Store{client: client}
}

// NewS3StoreFromDSN opens a store for a DSN like s3://bucket/prefix.
func NewS3StoreFromDSN(dsn string, region string) (*S3Store, error) {
	b, err := s3.ParseDSN(dsn, region)
	if err != nil {
		return nil, err
	}
	return NewS3Store(s3.NewBasicClient(b.Name, b.Region, b.Prefix)), nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	objs, err := s.client.List(ctx, prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "error listing S3 prefix %v", prefix)
	}
	retval := make([]Object, len(objs))
	for i, o := range objs {
		retval[i] = Object{Name: o.Key, LastModified: o.LastModified}
	}
	return retval, nil
}

func (s *S3Store) ReadText(ctx context.Context, name string) (string, error) {
	b, err := s.client.Get(ctx, name)
	if err == s3.ErrKeyNotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "error reading S3 object %v", name)
	}
	return string(b), nil
}

func (s *S3Store) WriteText(ctx context.Context, name string, text string, overwrite bool) error {
	if !overwrite {
		exists, err := s.Exists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyExists
		}
	}
	if err := s.client.Put(ctx, name, []byte(text)); err != nil {
		return errors.Wrapf(err, "error writing S3 object %v", name)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.Head(ctx, name)
	if err == s3.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "error checking S3 object %v", name)
	}
	return true, nil
}
