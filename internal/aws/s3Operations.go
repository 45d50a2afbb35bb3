package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

const presignExpiry = 15 * time.Minute

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Service archives verified outputs to a bucket.
type S3Service struct {
	uploader   objectUploader
	presigner  objectPresigner
	bucketName string
	logger     zerolog.Logger
}

func NewS3Service(client *s3.Client, bucketName string, logger zerolog.Logger) *S3Service {
	return &S3Service{
		uploader:   NewArchiveUploader(client),
		presigner:  s3.NewPresignClient(client),
		bucketName: bucketName,
		logger:     logger,
	}
}

// ObjectKey is processed/<jobID>/<file name>, or processed/<file name>
// when the job id is empty or not a plain path element.
func ObjectKey(jobID string, localPath string) string {
	name := filepath.Base(localPath)
	if jobID == "" || jobID == "." || jobID == ".." || strings.ContainsAny(jobID, `/\`) {
		return path.Join("processed", name)
	}
	return path.Join("processed", jobID, name)
}

// ArchiveOutput uploads the file at localPath and returns a presigned GET URL
// valid for 15 minutes.
func (service *S3Service) ArchiveOutput(parentCtx context.Context, jobID string, localPath string) (string, error) {
	if localPath == "" {
		return "", errors.New("local path cannot be empty")
	}
	ctx, cancel := context.WithTimeout(parentCtx, 5*time.Minute)
	defer cancel()

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open output %q: %w", localPath, err)
	}
	defer file.Close()

	key := ObjectKey(jobID, localPath)
	_, err = service.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(service.bucketName),
		Key:               aws.String(key),
		Body:              file,
		ContentType:       aws.String("video/mp4"),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return "", fmt.Errorf("couldn't upload object with key: %s, AWS error: %w", key, err)
	}

	req, err := service.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(service.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign url: %w", err)
	}
	service.logger.Info().Str("bucket", service.bucketName).Str("key", key).Msg("archived output")
	return req.URL, nil
}
