package publisher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"pixforge/logger"
)

// UploadToGCSWithJSON uploads content to a Google Cloud Storage object using a
// service account key. accessInfo keys: credentialsJSON (raw or base64),
// bucket, object.
func UploadToGCSWithJSON(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	bucketName := accessInfo["bucket"]
	objectName := accessInfo["object"]
	if bucketName == "" || objectName == "" {
		return fmt.Errorf("missing required accessInfo keys: bucket, object")
	}

	credentialsJSON := []byte(accessInfo["credentialsJSON"])
	if decoded, err := base64.StdEncoding.DecodeString(accessInfo["credentialsJSON"]); err == nil {
		credentialsJSON = decoded
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if ct := accessInfo["contentType"]; ct != "" {
		wc.ContentType = ct
	}
	if _, err = io.Copy(wc, reader); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Debugf("published object '%s' to bucket '%s'", objectName, bucketName)
	return nil
}
