package utils

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestR2Bucket_UploadBytes(t *testing.T) {
	putter := &fakePutter{}
	b := NewR2Bucket(putter, "arena", "https://cdn.example.com/", "https://acct.r2.cloudflarestorage.com")

	url, err := b.UploadBytes(context.Background(), "battles/x.json", "application/json", []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://cdn.example.com/battles/x.json" {
		t.Fatalf("url = %q", url)
	}
	if aws.ToString(putter.input.Bucket) != "arena" || aws.ToString(putter.input.Key) != "battles/x.json" {
		t.Fatalf("input = %+v", putter.input)
	}
	if aws.ToString(putter.input.ContentType) != "application/json" {
		t.Fatalf("content type = %q", aws.ToString(putter.input.ContentType))
	}
	if string(putter.body) != `{"ok":true}` {
		t.Fatalf("body = %s", putter.body)
	}
}

func TestR2Bucket_FallsBackToEndpoint(t *testing.T) {
	b := NewR2Bucket(&fakePutter{}, "arena", "", "https://acct.r2.cloudflarestorage.com")
	url, err := b.UploadBytes(context.Background(), "k", "text/plain", nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "https://acct.r2.cloudflarestorage.com/k" {
		t.Fatalf("url = %q", url)
	}
}

func TestR2Bucket_UploadError(t *testing.T) {
	b := NewR2Bucket(&fakePutter{err: errors.New("denied")}, "arena", "", "https://e")
	if _, err := b.UploadBytes(context.Background(), "k", "text/plain", []byte("x")); err == nil {
		t.Fatal("expected error")
	}
}
