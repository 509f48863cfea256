package network

import (
	"fmt"
	"github.com/minio/minio-go/v6"
	"github.com/op/go-logging"
)

// Publisher is the archive hosting surface the packager works
// against: upload a finished archive under a stable object name, and
// delete it again once the network holds its own copy.
type Publisher interface {
	Publish(objectName, filePath string) (string, error)
	Remove(objectName string) error
}

// ArchivePublisher uploads finished archives to an S3-compatible
// bucket, so the stable content URL in the metadata document can
// point at hosted storage instead of the publisher's own gateway.
// This is optional; when no bucket is configured the gateway URL is
// used and this type never comes into play.
type ArchivePublisher struct {
	s3Client *minio.Client
	bucket   string
	logger   *logging.Logger
}

// NewArchivePublisher returns a publisher backed by the S3-compatible
// store at endpoint. For endpoint, do not include the protocol:
// use "example.com", not "https://example.com".
func NewArchivePublisher(endpoint, accessKeyId, secretAccessKey, bucket string, useSSL bool, logger *logging.Logger) (*ArchivePublisher, error) {
	s3Client, err := minio.New(endpoint, accessKeyId, secretAccessKey, useSSL)
	if err != nil {
		return nil, fmt.Errorf("Cannot create S3 client for %s: %v", endpoint, err)
	}
	return &ArchivePublisher{
		s3Client: s3Client,
		bucket:   bucket,
		logger:   logger,
	}, nil
}

// Publish uploads the file at filePath under objectName and returns
// the URL the network can fetch it from.
func (publisher *ArchivePublisher) Publish(objectName, filePath string) (string, error) {
	bytesWritten, err := publisher.s3Client.FPutObject(publisher.bucket, objectName,
		filePath, minio.PutObjectOptions{ContentType: "application/x-tar"})
	if err != nil {
		return "", fmt.Errorf("Cannot upload %s to bucket %s: %v",
			filePath, publisher.bucket, err)
	}
	publisher.logger.Info("Uploaded %s (%d bytes) to bucket %s",
		objectName, bytesWritten, publisher.bucket)
	return fmt.Sprintf("%s/%s/%s", publisher.s3Client.EndpointURL(),
		publisher.bucket, objectName), nil
}

// Remove deletes a hosted archive. RemoveObject does not complain
// about objects that were never uploaded, so this is safe after a
// packaging failure too.
func (publisher *ArchivePublisher) Remove(objectName string) error {
	return publisher.s3Client.RemoveObject(publisher.bucket, objectName)
}
