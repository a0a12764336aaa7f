package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/acm19/pdfsqueeze/internal/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	uriScheme      = "s3://"
	pdfContentType = "application/pdf"
)

// ErrConflict is returned when a different object already exists at the target key.
var ErrConflict = errors.New("object exists with different content")

// S3Client is the subset of the S3 API used by Store
type S3Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Location addresses a single object
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return uriScheme + l.Bucket + "/" + l.Key
}

// IsRemote reports whether s is an s3:// URI
func IsRemote(s string) bool {
	return strings.HasPrefix(s, uriScheme)
}

// ParseURI parses "s3://bucket/key"
func ParseURI(s string) (Location, error) {
	if !IsRemote(s) {
		return Location{}, fmt.Errorf("not an s3 URI: %s", s)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(s, uriScheme), "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return Location{}, fmt.Errorf("s3 URI must be s3://bucket/key: %s", s)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// Store reads source documents from and publishes compressed documents to S3
type Store struct {
	client    S3Client
	overwrite bool
}

// NewStore creates a Store using the default AWS configuration chain
func NewStore(ctx context.Context, overwrite bool) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewStoreWithClient(s3.NewFromConfig(cfg), overwrite), nil
}

// NewStoreWithClient creates a Store around an existing client
func NewStoreWithClient(client S3Client, overwrite bool) *Store {
	return &Store{client: client, overwrite: overwrite}
}

// Fetch streams the object at loc into w and returns the number of bytes copied
func (s *Store) Fetch(ctx context.Context, loc Location, w io.Writer) (int64, error) {
	logger.Debug("Fetching object", "location", loc.String())
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", loc, err)
	}
	defer out.Body.Close()

	n, err := io.Copy(w, out.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return n, nil
}

// Publish uploads the file at path to loc. An existing object with the same
// MD5 is left untouched. A different existing object is an ErrConflict unless
// the store was created with overwrite enabled.
func (s *Store) Publish(ctx context.Context, loc Location, path string) error {
	localHash, err := calculateMD5(path)
	if err != nil {
		return fmt.Errorf("failed to calculate MD5: %w", err)
	}

	headOutput, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err == nil {
		remoteETag := extractETag(headOutput.ETag)
		if remoteETag == localHash {
			logger.Info("Object already exists with matching hash, skipping", "location", loc.String(), "hash", localHash)
			return nil
		}
		if !s.overwrite {
			return fmt.Errorf("%w: %s (local: %s, remote: %s)", ErrConflict, loc, localHash, remoteETag)
		}
		logger.Warn("Overwriting object with different content", "location", loc.String())
	} else if !isNotFoundError(err) {
		return fmt.Errorf("failed to check object existence: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	logger.Info("Uploading to S3", "location", loc.String(), "hash", localHash)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        file,
		ContentType: aws.String(pdfContentType),
	}); err != nil {
		return fmt.Errorf("failed to upload %s: %w", loc, err)
	}
	return nil
}

// extractETag strips the quotes S3 puts around ETags
func extractETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, `"`)
}

// calculateMD5 calculates the MD5 hash of a file
func calculateMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// isNotFoundError checks if the error is a NotFound error
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
