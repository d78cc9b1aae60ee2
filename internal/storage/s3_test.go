package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 implements s3API in memory and paginates listings one key at a time
// so ListPrefix's continuation handling gets exercised.
type fakeS3 struct {
	objects map[string]struct{}
	putErr  error
	listErr error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	if f.objects == nil {
		f.objects = map[string]struct{}{}
	}
	f.objects[*in.Key] = struct{}{}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, *in.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		// Token encodes the next index.
		start = int((*in.ContinuationToken)[0] - '0')
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if start < len(keys) {
		out.Contents = []s3types.Object{{Key: aws.String(keys[start])}}
		if start+1 < len(keys) {
			out.IsTruncated = aws.Bool(true)
			out.NextContinuationToken = aws.String(string(rune('0' + start + 1)))
		}
	}
	return out, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StoreURL(t *testing.T) {
	s := &S3Store{bucket: "evoris", publicURL: ""}
	if got := s.URL("capsules/u/1/photos/a.jpg"); got != "https://evoris.s3.amazonaws.com/capsules/u/1/photos/a.jpg" {
		t.Fatalf("URL: %q", got)
	}
	s = &S3Store{bucket: "evoris", publicURL: "https://cdn.evoris.app"}
	if got := s.URL("k"); got != "https://cdn.evoris.app/k" {
		t.Fatalf("public URL: %q", got)
	}
}

func TestS3StoreUploadAndListPagination(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{}
	s := &S3Store{client: fake, bucket: "evoris"}

	for _, k := range []string{
		"capsules/u1/1/photos/a.jpg",
		"capsules/u1/1/photos/b.jpg",
		"capsules/u1/1/audio/c.mp3",
		"capsules/u2/9/photos/x.jpg",
	} {
		if _, err := s.Upload(ctx, k, strings.NewReader("data")); err != nil {
			t.Fatalf("Upload %s: %v", k, err)
		}
	}

	keys, err := s.ListPrefix(ctx, "capsules/u1/1")
	if err != nil {
		t.Fatalf("ListPrefix: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys across pages, got %v", keys)
	}
}

func TestS3StoreDelete(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{}
	s := &S3Store{client: fake, bucket: "evoris"}

	if _, err := s.Upload(ctx, "k", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Missing key deletes succeed, matching S3 semantics.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("re-Delete: %v", err)
	}
}

func TestS3StoreUploadError(t *testing.T) {
	s := &S3Store{client: &fakeS3{putErr: errors.New("boom")}, bucket: "b"}
	if _, err := s.Upload(context.Background(), "k", strings.NewReader("x")); err == nil {
		t.Fatal("expected wrapped put error")
	}
}

func TestS3StoreListError(t *testing.T) {
	s := &S3Store{client: &fakeS3{listErr: errors.New("boom")}, bucket: "b"}
	if _, err := s.ListPrefix(context.Background(), "p"); err == nil {
		t.Fatal("expected wrapped list error")
	}
}
