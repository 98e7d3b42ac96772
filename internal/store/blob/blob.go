// Package blob stores one JSON document per image in an Azure Blob Storage
// container.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblobblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"boxmark/internal/annotation"
	"boxmark/internal/store"
)

const (
	suffix      = ".json"
	contentType = "application/json"
)

type Store struct {
	client    *azblob.Client
	container string
	prefix    string
	logger    *slog.Logger
}

// New creates the client. The container is created on first use by Start.
func New(cfg *Config, logger *slog.Logger) (*Store, error) {
	var (
		client *azblob.Client
		err    error
	)
	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create azure credential: %w", err)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Store{
		client:    client,
		container: cfg.ContainerName,
		prefix:    cfg.Prefix,
		logger:    logger.With("system", "blob"),
	}, nil
}

// Start ensures the container exists.
func (s *Store) Start(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, classify(err))
	}
	s.logger.Info("storage container ready", "container", s.container)
	return nil
}

func (s *Store) key(imageID string) string {
	return s.prefix + imageID + suffix
}

func (s *Store) Load(ctx context.Context, imageID string) ([]annotation.Annotation, error) {
	if err := store.ValidateKey(imageID); err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, s.key(imageID), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("download %s: %w", imageID, classify(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", imageID, classify(err))
	}
	doc, err := store.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", imageID, err)
	}
	return doc.Annotations, nil
}

// Save uploads the document. An empty set deletes the blob.
func (s *Store) Save(ctx context.Context, imageID string, anns []annotation.Annotation) error {
	if err := store.ValidateKey(imageID); err != nil {
		return err
	}
	if len(anns) == 0 {
		_, err := s.client.DeleteBlob(ctx, s.container, s.key(imageID), nil)
		if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("delete %s: %w", imageID, classify(err))
		}
		return nil
	}

	data, err := store.Encode(imageID, anns, time.Now())
	if err != nil {
		return err
	}
	ct := contentType
	opts := &azblob.UploadBufferOptions{
		HTTPHeaders: &azblobblob.HTTPHeaders{BlobContentType: &ct},
	}
	if _, err := s.client.UploadBuffer(ctx, s.container, s.key(imageID), data, opts); err != nil {
		return fmt.Errorf("upload %s: %w", imageID, classify(err))
	}
	s.logger.Debug("annotations uploaded", "image", imageID, "bytes", len(data))
	return nil
}

func (s *Store) Annotated(ctx context.Context) ([]string, error) {
	prefix := s.prefix
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	var ids []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs: %w", classify(err))
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil || !strings.HasSuffix(*item.Name, suffix) {
				continue
			}
			ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(*item.Name, s.prefix), suffix))
		}
	}
	return ids, nil
}

func classify(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return classifyStatus(respErr.StatusCode, err)
	}
	return err
}

// classifyStatus tags throttling and server faults as unavailable and
// rejected requests as validation failures.
func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	case code == http.StatusBadRequest, code == http.StatusRequestEntityTooLarge, code == http.StatusConflict:
		return fmt.Errorf("%w: %w", store.ErrValidation, err)
	}
	return err
}
