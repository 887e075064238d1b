package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-dashboard-inspector/internal/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"
)

// ArtifactSink receives generated report files
type ArtifactSink interface {
	Upload(ctx context.Context, path string) (string, error)
	Name() string
}

type azureSink struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureSink uploads report files to a blob container using a shared key
func NewAzureSink(accountName, accountKey, container string) (ArtifactSink, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	return &azureSink{client: client, container: container, prefix: "reports/"}, nil
}

// Upload stores the file under reports/<name> and returns the blob URL
func (s *azureSink) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	blobName := s.prefix + filepath.Base(path)
	if _, err := s.client.UploadFile(ctx, s.container, blobName, f, nil); err != nil {
		return "", fmt.Errorf("upload %s: %w", blobName, err)
	}

	blobURL := strings.TrimSuffix(s.client.URL(), "/") + "/" + s.container + "/" + blobName
	logger.WithFields(logrus.Fields{
		"container": s.container,
		"blob":      blobName,
	}).Info("Report uploaded to blob storage")
	return blobURL, nil
}

func (s *azureSink) Name() string {
	return "azure"
}

// NoopSink keeps reports local only
type NoopSink struct{}

func (NoopSink) Upload(ctx context.Context, path string) (string, error) {
	return "", nil
}

func (NoopSink) Name() string {
	return "none"
}
