package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	deleted []string
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type fakeUploader struct {
	s3manageriface.UploaderAPI
	uploads map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Key)
	f.uploads[key] = data
	f.types[key] = aws.StringValue(in.ContentType)
	return &s3manager.UploadOutput{Location: "https://" + key}, nil
}

func TestObjectStoreUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	up := &fakeUploader{uploads: map[string][]byte{}, types: map[string]string{}}
	store := NewObjectStoreWithClients(&fakeS3{}, up)

	uri, size, err := store.Upload(context.Background(), path, "audiobucketdemo", "recordings/recording.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uri != "s3://audiobucketdemo/recordings/recording.wav" {
		t.Fatalf("unexpected uri %s", uri)
	}
	if size != 12 {
		t.Fatalf("expected 12 bytes, got %d", size)
	}
	if string(up.uploads["audiobucketdemo/recordings/recording.wav"]) != "RIFF....WAVE" {
		t.Fatal("uploaded body does not match file")
	}
	if up.types["audiobucketdemo/recordings/recording.wav"] == "" {
		t.Fatal("expected a content type")
	}
}

func TestObjectStoreUploadErrors(t *testing.T) {
	store := NewObjectStoreWithClients(&fakeS3{}, &fakeUploader{err: errors.New("AccessDenied")})

	if _, _, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), "b", "k"); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "recording.wav")
	os.WriteFile(path, []byte("x"), 0644)
	if _, _, err := store.Upload(context.Background(), path, "b", "k"); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestObjectStoreOpenAndDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"out/transcriptions/job.json": []byte(`{}`)}}
	store := NewObjectStoreWithClients(fake, nil)

	rc, err := store.Open(context.Background(), "out", "transcriptions/job.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "{}" {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := store.Open(context.Background(), "out", "missing.json"); !errors.Is(err, ErrNoObject) {
		t.Fatalf("expected ErrNoObject, got %v", err)
	}

	if err := store.Delete(context.Background(), "in", "recordings/a.wav"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "in/recordings/a.wav" {
		t.Fatalf("unexpected deletes %v", fake.deleted)
	}
}
