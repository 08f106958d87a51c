package s3

import (
	"bytes"
	"context"
	"io/ioutil"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func NewBasicClient(bucket, region, prefix string) BasicClient {
	awsConfig := aws.NewConfig()
	awsConfig.Region = aws.String(region)
	sess := session.Must(session.NewSession(awsConfig))
	return NewBasicClientWithAPI(bucket, region, prefix, s3.New(sess))
}

func NewBasicClientWithAPI(bucket, region, prefix string, api s3iface.S3API) BasicClient {
	return &basicClient{
		bucket: bucket,
		region: region,
		prefix: strings.Trim(prefix, "/"),
		api:    api,
	}
}

type basicClient struct {
	region string
	bucket string
	prefix string
	api    s3iface.S3API
}

func (s *basicClient) List(ctx context.Context, key string) (objects []ObjectInfo, err error) {
	objects = make([]ObjectInfo, 0, 1000)
	lastKey := ""
	for {
		params := &s3.ListObjectsInput{
			Bucket:  aws.String(s.bucket),
			Marker:  aws.String(lastKey),
			MaxKeys: aws.Int64(1000),
			Prefix:  aws.String(s.getKeyWithPrefix(key)),
		}
		resp, err := s.api.ListObjectsWithContext(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Contents {
			lastKey = aws.StringValue(v.Key)
			objects = append(objects, ObjectInfo{
				Key:          s.trimPrefix(lastKey),
				LastModified: aws.TimeValue(v.LastModified),
				ETag:         aws.StringValue(v.ETag),
			})
		}
		if !aws.BoolValue(resp.IsTruncated) || len(resp.Contents) == 0 {
			break
		}
	}
	return
}

func (s *basicClient) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer res.Body.Close()
	return ioutil.ReadAll(res.Body)
}

func (s *basicClient) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *basicClient) Head(ctx context.Context, key string) (ObjectInfo, error) {
	res, err := s.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, ErrKeyNotFound
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, LastModified: aws.TimeValue(res.LastModified), ETag: aws.StringValue(res.ETag)}, nil
}

// isNotFound matches GetObject's NoSuchKey and the bare NotFound that HeadObject returns.
func isNotFound(err error) bool {
	awsErr, ok := err.(awserr.Error)
	if !ok {
		return false
	}
	return awsErr.Code() == s3.ErrCodeNoSuchKey || awsErr.Code() == "NotFound"
}

func (s *basicClient) getKeyWithPrefix(key string) string {
	if s.prefix != "" {
		return s.prefix + "/" + key // ensure trailing slash after prefix.
	}
	return key
}

func (s *basicClient) trimPrefix(key string) string {
	if s.prefix != "" {
		return strings.TrimPrefix(key, s.prefix+"/")
	}
	return key
}
