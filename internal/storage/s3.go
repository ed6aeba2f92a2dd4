package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

var ErrNoObject = errors.New("storage: no object")

// ObjectStore moves audio and result documents in and out of S3
type ObjectStore struct {
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI
}

// NewObjectStore returns a store backed by the shared session
func NewObjectStore(sess *session.Session) *ObjectStore {
	client := s3.New(sess)
	return NewObjectStoreWithClients(client, s3manager.NewUploaderWithClient(client))
}

// NewObjectStoreWithClients wires explicit clients, used by tests
func NewObjectStoreWithClients(client s3iface.S3API, uploader s3manageriface.UploaderAPI) *ObjectStore {
	return &ObjectStore{client: client, uploader: uploader}
}

// ObjectURI formats the s3:// URI the transcription service reads media from
func ObjectURI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// Upload transfers the file at path to bucket/key and returns its s3:// URI
// and size in bytes
func (s *ObjectStore) Upload(ctx context.Context, path, bucket, key string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload to s3://%s/%s: %w", bucket, key, err)
	}
	return ObjectURI(bucket, key), info.Size(), nil
}

// Open returns a reader for bucket/key. ErrNoObject is returned when the key
// does not exist.
func (s *ObjectStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoObject
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

// Delete removes bucket/key
func (s *ObjectStore) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if rerr, ok := err.(awserr.RequestFailure); ok && rerr.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
		return true
	}
	return false
}
