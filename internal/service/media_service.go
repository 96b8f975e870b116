package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seller-center/internal/model"
	"seller-center/pkg/apierror"
)

const (
	presignPath = "/media/presign-url"

	blobTypeHeader = "x-ms-blob-type"
	blockBlob      = "BlockBlob"
)

// UploadFile is a file to be uploaded through a presigned URL.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

type MediaService struct {
	api  apiClient
	blob *http.Client
}

// NewMediaService uploads blobs with blobClient, which must not add backend
// credentials. A nil blobClient gets a default client.
func NewMediaService(api apiClient, blobClient *http.Client) *MediaService {
	if blobClient == nil {
		blobClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &MediaService{api: api, blob: blobClient}
}

func (s *MediaService) PresignURL(ctx context.Context, req model.PresignURLRequest) (model.PresignURLResponse, error) {
	name, err := cleanFileName(req.FileName)
	if err != nil {
		return model.PresignURLResponse{}, err
	}
	req.FileName = name

	switch {
	case strings.TrimSpace(req.ContentType) == "":
		return model.PresignURLResponse{}, fmt.Errorf("%w: contentType is required", model.ErrInvalidInput)
	case req.FileSize <= 0:
		return model.PresignURLResponse{}, fmt.Errorf("%w: fileSize must be positive", model.ErrInvalidInput)
	case strings.TrimSpace(req.EntityType) == "":
		return model.PresignURLResponse{}, fmt.Errorf("%w: entityType is required", model.ErrInvalidInput)
	}

	var resp model.PresignURLResponse
	if err := s.api.Post(ctx, presignPath, req, &resp); err != nil {
		return model.PresignURLResponse{}, err
	}
	return resp, nil
}

func (s *MediaService) ConfirmUpload(ctx context.Context, fileID string, entityID string) error {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return fmt.Errorf("%w: file id is required", model.ErrInvalidInput)
	}
	path := "/media/" + url.PathEscape(fileID) + "/confirm"
	return s.api.Post(ctx, path, model.ConfirmUploadRequest{EntityID: entityID}, nil)
}

// UploadToBlob PUTs content to a presigned blob storage URL. The URL carries
// its own authorization.
func (s *MediaService) UploadToBlob(ctx context.Context, uploadURL string, contentType string, size int64, content io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, content)
	if err != nil {
		return fmt.Errorf("build blob upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set(blobTypeHeader, blockBlob)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.blob.Do(req)
	if err != nil {
		return fmt.Errorf("upload blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("upload blob: %w", apierror.Parse(body, resp.StatusCode))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Upload presigns a URL for file and uploads it there. The file still has to
// be confirmed once the owning entity exists.
func (s *MediaService) Upload(ctx context.Context, file UploadFile, entityType string, entityID string) (model.PresignURLResponse, error) {
	presigned, err := s.PresignURL(ctx, model.PresignURLRequest{
		FileName:    file.Name,
		ContentType: file.ContentType,
		FileSize:    file.Size,
		EntityType:  entityType,
		EntityID:    entityID,
	})
	if err != nil {
		return model.PresignURLResponse{}, err
	}

	if err := s.UploadToBlob(ctx, presigned.UploadURL, file.ContentType, file.Size, file.Content); err != nil {
		return model.PresignURLResponse{}, err
	}
	return presigned, nil
}
