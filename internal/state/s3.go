package state

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"gopkg.in/yaml.v3"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
)

// s3api is the subset of the S3 client the store uses.
type s3api interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store keeps state in a bucket: one object per resource record plus a
// spec snapshot. A single PutObject is the atomic unit, which gives the
// per-record durability the executor relies on.
type S3Store struct {
	s3      s3api
	bucket  string
	prefix  string
	cluster string
}

var _ Store = (*S3Store)(nil)

// S3Options configures the remote state backend. Endpoint and static
// credentials are optional; when unset the ambient AWS chain is used, which
// also makes the store work against S3-compatible object storage.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Store builds a store over a bucket for one cluster.
func NewS3Store(ctx context.Context, cluster string, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{s3: client, bucket: opts.Bucket, prefix: opts.Prefix, cluster: cluster}, nil
}

func (s *S3Store) recordKey(id string) string {
	return path.Join(s.prefix, s.cluster, "records", id) + ".yaml"
}

func (s *S3Store) specKey() string {
	return path.Join(s.prefix, s.cluster, "spec.yaml")
}

func (s *S3Store) Load(ctx context.Context) (*State, error) {
	st := NewState()

	if data, err := s.get(ctx, s.specKey()); err == nil {
		var snap spec.ClusterSpec
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal spec snapshot: %w", err)
		}
		st.Spec = &snap
		st.SpecHash = snap.Hash()
	} else if !isNoSuchKey(err) {
		return nil, err
	}

	recPrefix := path.Join(s.prefix, s.cluster, "records") + "/"
	var next *string
	for {
		out, err := s.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(recPrefix),
			ContinuationToken: next,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list state records: %w", err)
		}

		for _, obj := range out.Contents {
			data, err := s.get(ctx, aws.ToString(obj.Key))
			if err != nil {
				return nil, err
			}
			var rec provider.ResourceRecord
			if err := yaml.Unmarshal(data, &rec); err != nil {
				return nil, fmt.Errorf("failed to unmarshal record %s: %w", aws.ToString(obj.Key), err)
			}
			st.Records[rec.ID] = rec
		}

		if out.NextContinuationToken == nil {
			return st, nil
		}
		next = out.NextContinuationToken
	}
}

func (s *S3Store) Save(ctx context.Context, rec provider.ResourceRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(rec.ID)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *S3Store) Remove(ctx context.Context, id string) error {
	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to remove record %s: %w", id, err)
	}
	return nil
}

func (s *S3Store) SnapshotSpec(ctx context.Context, sp *spec.ClusterSpec) error {
	data, err := yaml.Marshal(sp)
	if err != nil {
		return fmt.Errorf("failed to marshal spec snapshot: %w", err)
	}
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.specKey()),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to snapshot spec: %w", err)
	}
	return nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// isNoSuchKey checks for a missing object, with an API-code fallback for
// S3-compatible services that do not return the exact SDK error types.
func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
