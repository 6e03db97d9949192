package objectstore

import (
	"context"
	"net/url"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store implements the pipeline's object store capability on top of
// one S3 bucket.
type S3Store struct {
	bucket     string
	client     *s3.S3
	downloader *s3manager.Downloader
}

func New(sess *session.Session, bucket string) *S3Store {
	return &S3Store{
		bucket:     bucket,
		client:     s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
	}
}

// ListObjects returns the keys directly under the prefix. The listing
// is non-recursive: the landing convention is a flat folder, so objects
// nested one level deeper are left where they are. The folder
// placeholder object, when present, comes back too; callers filter it.
func (s *S3Store) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, object := range page.Contents {
			keys = append(keys, aws.StringValue(object.Key))
		}
		return true
	})

	return keys, err
}

// DownloadToFile fetches an object into a local file and returns the
// object's last-modified time.
func (s *S3Store) DownloadToFile(ctx context.Context, key, localPath string) (time.Time, error) {
	head, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return time.Time{}, err
	}

	f, err := os.Create(localPath)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	if _, err := s.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		os.Remove(localPath)
		return time.Time{}, err
	}

	return aws.TimeValue(head.LastModified), nil
}

// RenameObject moves an object with copy-then-delete. Renaming an
// object that has already been moved to toKey is a no-op, which keeps
// re-running an interrupted archive pass safe.
func (s *S3Store) RenameObject(ctx context.Context, fromKey, toKey string) error {
	if _, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fromKey),
	}); err != nil {
		if isNotFound(err) {
			if _, destErr := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(toKey),
			}); destErr == nil {
				// already moved by a previous run
				return nil
			}
		}
		return err
	}

	if _, err := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(url.PathEscape(s.bucket + "/" + fromKey)),
		Key:        aws.String(toKey),
	}); err != nil {
		return err
	}

	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fromKey),
	})
	return err
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey
	}
	return false
}
