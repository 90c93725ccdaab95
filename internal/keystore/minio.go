package keystore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds settings for the S3-compatible backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	Bucket string

	// Object holds the base58 keypair; defaults to "keypair".
	Object string
}

// MinioStorage stores the keypair as a single object in an S3-compatible
// bucket. The bucket is created on first Put if missing.
type MinioStorage struct {
	client *minio.Client
	bucket string
	object string
}

func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	object := cfg.Object
	if object == "" {
		object = "keypair"
	}
	return &MinioStorage{client: client, bucket: cfg.Bucket, object: object}, nil
}

func (s *MinioStorage) Get(ctx context.Context) (solana.PrivateKey, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get keypair: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, nil
		}
		return nil, fmt.Errorf("minio read keypair: %w", err)
	}

	key, err := solana.PrivateKeyFromBase58(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse keypair: %w", err)
	}
	return key, nil
}

func (s *MinioStorage) Put(ctx context.Context, key solana.PrivateKey) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("minio make bucket: %w", err)
		}
	}

	data := []byte(key.String())
	_, err = s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("minio put keypair: %w", err)
	}
	return nil
}
