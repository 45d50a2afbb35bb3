package aws

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type fakeUploader struct {
	key  string
	body []byte
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = awssdk.ToString(input.Key)
	f.body, _ = io.ReadAll(input.Body)
	return &manager.UploadOutput{Key: input.Key}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3.amazonaws.com/" + awssdk.ToString(params.Key) + "?X-Amz-Signature=sig"}, nil
}

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("job-1", "/tmp/downloads/final_watermarked.mp4"); got != "processed/job-1/final_watermarked.mp4" {
		t.Fatalf("ObjectKey = %s", got)
	}
	if got := ObjectKey("", "final.mp4"); got != "processed/final.mp4" {
		t.Fatalf("ObjectKey without job = %s", got)
	}
	for _, id := range []string{"../../etc", "..", "a/b"} {
		if got := ObjectKey(id, "out.mp4"); got != "processed/out.mp4" {
			t.Fatalf("ObjectKey(%q) = %s", id, got)
		}
	}
}

func TestArchiveOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(file, []byte("video"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	uploader := &fakeUploader{}
	service := &S3Service{uploader: uploader, presigner: fakePresigner{}, bucketName: "bucket", logger: zerolog.Nop()}

	url, err := service.ArchiveOutput(context.Background(), "job-7", file)
	if err != nil {
		t.Fatalf("ArchiveOutput: %v", err)
	}
	if uploader.key != "processed/job-7/out.mp4" || string(uploader.body) != "video" {
		t.Fatalf("uploaded %s %q", uploader.key, uploader.body)
	}
	if url != "https://bucket.s3.amazonaws.com/processed/job-7/out.mp4?X-Amz-Signature=sig" {
		t.Fatalf("url = %s", url)
	}
}

func TestArchiveOutput_UploadError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(file, []byte("video"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	boom := errors.New("access denied")
	service := &S3Service{uploader: &fakeUploader{err: boom}, presigner: fakePresigner{}, bucketName: "bucket", logger: zerolog.Nop()}

	if _, err := service.ArchiveOutput(context.Background(), "job", file); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upload error, got %v", err)
	}
	if _, err := service.ArchiveOutput(context.Background(), "job", ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
