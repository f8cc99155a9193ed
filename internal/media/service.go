package media

import (
	"context"
	"io"
	"strings"

	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
	"github.com/jubileehq/jubilee-backend/pkg/storage/gcs"
)

// Purpose routes an upload to its bucket prefix and allow-list.
type Purpose string

const (
	PurposeProof   Purpose = "proof"
	PurposeChat    Purpose = "chat"
	PurposeCatalog Purpose = "catalog"
)

// Per-purpose size ceilings, in bytes.
const (
	maxProofBytes   = 10 << 20
	maxChatBytes    = 25 << 20
	maxCatalogBytes = 10 << 20
)

var imageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

var videoTypes = map[string]struct{}{
	"video/mp4":       {},
	"video/quicktime": {},
	"video/webm":      {},
}

type uploader interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
}

// UploadRequest carries one file from the multipart form.
type UploadRequest struct {
	Purpose     Purpose
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult points at the stored object.
type UploadResult struct {
	URL         string `json:"url"`
	ObjectName  string `json:"objectName"`
	ContentType string `json:"contentType"`
}

// Service validates and stores uploaded media.
type Service interface {
	Upload(ctx context.Context, role enums.UserRole, req UploadRequest) (*UploadResult, error)
}

type service struct {
	store uploader
	logg  *logger.Logger
}

// NewService wires the media service over the object store.
func NewService(store uploader, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "object store required")
	}
	return &service{store: store, logg: logg}, nil
}

func (s *service) Upload(ctx context.Context, role enums.UserRole, req UploadRequest) (*UploadResult, error) {
	prefix, err := prefixFor(req.Purpose, role)
	if err != nil {
		return nil, err
	}
	contentType := normalizeContentType(req.ContentType)
	if err := checkContentType(req.Purpose, contentType); err != nil {
		return nil, err
	}
	if err := checkSize(req.Purpose, req.Size); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file body required")
	}

	objectName := gcs.ObjectName(prefix, req.Filename)
	url, err := s.store.Upload(ctx, objectName, contentType, io.LimitReader(req.Body, sizeLimit(req.Purpose)))
	if err != nil {
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "object_name", objectName)
			s.logg.Error(logCtx, "media upload failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	return &UploadResult{URL: url, ObjectName: objectName, ContentType: contentType}, nil
}

// prefixFor also enforces who may upload where: catalog media is staff-only,
// the other purposes are open to any authenticated user.
func prefixFor(purpose Purpose, role enums.UserRole) (string, error) {
	switch purpose {
	case PurposeProof:
		return gcs.PrefixProofs, nil
	case PurposeChat:
		return gcs.PrefixChat, nil
	case PurposeCatalog:
		if !role.IsStaff() {
			return "", pkgerrors.New(pkgerrors.CodeForbidden, "catalog uploads are staff only")
		}
		return gcs.PrefixCatalog, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown upload purpose")
	}
}

func checkContentType(purpose Purpose, contentType string) error {
	if contentType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "content type required")
	}
	if _, ok := imageTypes[contentType]; ok {
		return nil
	}
	switch purpose {
	case PurposeProof:
		if contentType == "application/pdf" {
			return nil
		}
	case PurposeChat:
		if _, ok := videoTypes[contentType]; ok {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "unsupported file type")
}

func checkSize(purpose Purpose, size int64) error {
	if size <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "empty upload")
	}
	if size > sizeLimit(purpose) {
		return pkgerrors.New(pkgerrors.CodeValidation, "file too large")
	}
	return nil
}

func sizeLimit(purpose Purpose) int64 {
	switch purpose {
	case PurposeChat:
		return maxChatBytes
	case PurposeProof:
		return maxProofBytes
	default:
		return maxCatalogBytes
	}
}

func normalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return contentType
}
