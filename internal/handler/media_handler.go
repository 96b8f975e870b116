package handler

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"seller-center/internal/model"
	"seller-center/internal/service"
	"seller-center/pkg/apierror"
)

const defaultMaxUploadSize = 10 << 20

type MediaHandler struct {
	service       *service.MediaService
	maxUploadSize int64
}

func NewMediaHandler(service *service.MediaService, maxUploadSize int64) *MediaHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxUploadSize
	}
	return &MediaHandler{service: service, maxUploadSize: maxUploadSize}
}

func (h *MediaHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var payload model.PresignURLRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	presigned, err := h.service.PresignURL(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, presigned, nil)
}

func (h *MediaHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var payload model.ConfirmUploadRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.ConfirmUpload(r.Context(), chi.URLParam(r, "id"), payload.EntityID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Upload accepts a multipart form with "entityType", an optional "entityId"
// and one "file" part, and pushes the file through a presigned URL.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)

	reader, err := r.MultipartReader()
	if err != nil {
		badRequest(w, "multipart")
		return
	}

	var (
		entityType string
		entityID   string
		file       *service.UploadFile
	)

	for {
		part, nextErr := reader.NextPart()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			if isPayloadTooLarge(nextErr) {
				writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "errors.REQUEST_ERROR", "file", http.StatusRequestEntityTooLarge))
				return
			}
			badRequest(w, "multipart")
			return
		}

		switch part.FormName() {
		case "entityType":
			entityType = readField(part)
		case "entityId":
			entityID = readField(part)
		case "file":
			if file != nil || strings.TrimSpace(part.FileName()) == "" {
				_ = part.Close()
				continue
			}
			var buf bytes.Buffer
			n, copyErr := io.Copy(&buf, io.LimitReader(part, h.maxUploadSize+1))
			_ = part.Close()
			if copyErr != nil || n > h.maxUploadSize {
				if copyErr == nil || isPayloadTooLarge(copyErr) {
					writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "errors.REQUEST_ERROR", "file", http.StatusRequestEntityTooLarge))
					return
				}
				badRequest(w, "file")
				return
			}
			file = &service.UploadFile{
				Name:        filepath.Base(part.FileName()),
				ContentType: partContentType(part.Header.Get("Content-Type"), part.FileName()),
				Size:        n,
				Content:     bytes.NewReader(buf.Bytes()),
			}
		default:
			_ = part.Close()
		}
	}

	if file == nil {
		badRequest(w, "file")
		return
	}

	presigned, err := h.service.Upload(r.Context(), *file, entityType, entityID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, presigned, nil)
}

func readField(part io.ReadCloser) string {
	defer part.Close()
	value, _ := io.ReadAll(io.LimitReader(part, 4<<10))
	return strings.TrimSpace(string(value))
}

func partContentType(declared string, fileName string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(fileName)); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
