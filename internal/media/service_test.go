package media

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/jubileehq/jubilee-backend/pkg/enums"
	pkgerrors "github.com/jubileehq/jubilee-backend/pkg/errors"
)

type stubUploader struct {
	lastObject      string
	lastContentType string
	lastBody        string
	err             error
}

func (s *stubUploader) Upload(_ context.Context, objectName, contentType string, body io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, _ := io.ReadAll(body)
	s.lastObject = objectName
	s.lastContentType = contentType
	s.lastBody = string(data)
	return "https://storage.googleapis.com/jubilee-media/" + objectName, nil
}

func newMediaService(t *testing.T) (*stubUploader, Service) {
	t.Helper()
	store := &stubUploader{}
	svc, err := NewService(store, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store, svc
}

func TestUploadProofImage(t *testing.T) {
	store, svc := newMediaService(t)

	result, err := svc.Upload(context.Background(), enums.UserRoleCustomer, UploadRequest{
		Purpose:     PurposeProof,
		Filename:    "receipt.PNG",
		ContentType: "image/png; charset=binary",
		Size:        1024,
		Body:        strings.NewReader("png-bytes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(store.lastObject, "proofs/") {
		t.Fatalf("expected proofs prefix, got %q", store.lastObject)
	}
	if !strings.HasSuffix(store.lastObject, ".png") {
		t.Fatalf("expected lowercased extension, got %q", store.lastObject)
	}
	if store.lastContentType != "image/png" {
		t.Fatalf("expected normalized content type, got %q", store.lastContentType)
	}
	if result.URL == "" || result.ObjectName != store.lastObject {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestUploadProofAcceptsPDF(t *testing.T) {
	_, svc := newMediaService(t)

	_, err := svc.Upload(context.Background(), enums.UserRoleCustomer, UploadRequest{
		Purpose:     PurposeProof,
		Filename:    "receipt.pdf",
		ContentType: "application/pdf",
		Size:        1024,
		Body:        strings.NewReader("%PDF"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUploadChatAcceptsVideo(t *testing.T) {
	store, svc := newMediaService(t)

	_, err := svc.Upload(context.Background(), enums.UserRoleCustomer, UploadRequest{
		Purpose:     PurposeChat,
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Size:        4096,
		Body:        strings.NewReader("mp4-bytes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(store.lastObject, "chat/") {
		t.Fatalf("expected chat prefix, got %q", store.lastObject)
	}
}

func TestUploadRejectsVideoProof(t *testing.T) {
	_, svc := newMediaService(t)

	_, err := svc.Upload(context.Background(), enums.UserRoleCustomer, UploadRequest{
		Purpose:     PurposeProof,
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Size:        4096,
		Body:        strings.NewReader("mp4-bytes"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadCatalogRequiresStaff(t *testing.T) {
	_, svc := newMediaService(t)

	_, err := svc.Upload(context.Background(), enums.UserRoleCustomer, UploadRequest{
		Purpose:     PurposeCatalog,
		Filename:    "box.jpg",
		ContentType: "image/jpeg",
		Size:        1024,
		Body:        strings.NewReader("jpg-bytes"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = svc.Upload(context.Background(), enums.UserRoleAdmin, UploadRequest{
		Purpose:     PurposeCatalog,
		Filename:    "box.jpg",
		ContentType: "image/jpeg",
		Size:        1024,
		Body:        strings.NewReader("jpg-bytes"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	_, svc := newMediaService(t)

	_, err := svc.Upload(context.Background(), enums.UserRoleCustomer, UploadRequest{
		Purpose:     PurposeProof,
		Filename:    "receipt.png",
		ContentType: "image/png",
		Size:        (10 << 20) + 1,
		Body:        strings.NewReader("png-bytes"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadRejectsUnknownPurpose(t *testing.T) {
	_, svc := newMediaService(t)

	_, err := svc.Upload(context.Background(), enums.UserRoleCustomer, UploadRequest{
		Purpose:     Purpose("avatar"),
		Filename:    "me.png",
		ContentType: "image/png",
		Size:        1024,
		Body:        strings.NewReader("png-bytes"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
