// Package export turns generated content into downloadable files. It
// validates the request, picks the assembler for the requested format and
// names the file; callers stream the returned bytes and drop them.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/metrics"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/assembler"
	"github.com/onegreenvn/bizdoc-services-backend/internal/utils"
)

// Artifact is one exported file. It is built per request and never cached.
type Artifact struct {
	Data        []byte
	Filename    string
	ContentType string
	Format      assembler.Format
}

// ObjectStore keeps archived exports
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignedURL(ctx context.Context, key, filename string) (string, time.Time, error)
}

type Service struct {
	registry *assembler.Registry
	theme    assembler.Theme
	store    ObjectStore
	now      func() time.Time
}

// NewService creates the dispatcher. store may be nil when archiving is not
// configured.
func NewService(registry *assembler.Registry, theme assembler.Theme, store ObjectStore) *Service {
	return &Service{
		registry: registry,
		theme:    theme,
		store:    store,
		now:      time.Now,
	}
}

// CreateFilename builds {business}_{type}_{YYYY-MM-DD}.{ext}
func CreateFilename(businessName, documentType, ext string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s",
		utils.SanitizeFilenamePart(businessName, "document"),
		utils.SanitizeFilenamePart(documentType, "document"),
		date.Format("2006-01-02"),
		strings.TrimPrefix(ext, "."),
	)
}

// CreateFilename names a file with today's date
func (s *Service) CreateFilename(businessName, documentType, ext string) string {
	return CreateFilename(businessName, documentType, ext, s.now())
}

// ResolveFormat returns the requested format, or the default for the
// document type when none was requested: slide decks export as pptx and
// everything else as docx.
func ResolveFormat(requested, documentType string) (assembler.Format, error) {
	if strings.TrimSpace(requested) != "" {
		f, ok := assembler.ParseFormat(requested)
		if !ok {
			return "", apperror.Validation(fmt.Sprintf("unsupported format %q", requested))
		}
		return f, nil
	}
	if kind, ok := models.ParseDocumentKind(documentType); ok && kind.IsSlideDeck() {
		return assembler.FormatPPTX, nil
	}
	return assembler.FormatDOCX, nil
}

// typeLabel renders a known slug as its label and passes free text through
func typeLabel(documentType string) string {
	if kind, ok := models.ParseDocumentKind(documentType); ok {
		return kind.Label()
	}
	return strings.TrimSpace(documentType)
}

func validate(req *models.ExportRequest) error {
	if strings.TrimSpace(req.Content) == "" {
		return apperror.Validation("content is required")
	}
	if strings.TrimSpace(req.BusinessName) == "" {
		return apperror.Validation("businessName is required")
	}
	return nil
}

// Export validates req and assembles the artifact. Nothing is assembled
// when validation fails.
func (s *Service) Export(ctx context.Context, req *models.ExportRequest) (*Artifact, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	format, err := ResolveFormat(req.Format, req.DocumentType)
	if err != nil {
		return nil, err
	}
	asm, ok := s.registry.Get(format)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unsupported format %q", format))
	}

	label := typeLabel(req.DocumentType)
	now := s.now()
	doc := assembler.Document{
		Title:        req.Title,
		BusinessName: strings.TrimSpace(req.BusinessName),
		DocumentType: label,
		Content:      req.Content,
		GeneratedAt:  now,
	}

	data, err := assembleSafely(asm, doc, s.theme)
	if err != nil {
		metrics.Exports.WithLabelValues(string(format), "error").Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"format":        format,
			"business_name": doc.BusinessName,
		}).Error("Failed to assemble document")
		return nil, apperror.Assembly(err)
	}
	metrics.Exports.WithLabelValues(string(format), "success").Inc()
	metrics.ExportBytes.WithLabelValues(string(format)).Observe(float64(len(data)))

	return &Artifact{
		Data:        data,
		Filename:    CreateFilename(doc.BusinessName, label, asm.Extension(), now),
		ContentType: asm.ContentType(),
		Format:      format,
	}, nil
}

// assembleSafely turns an assembler panic into an error
func assembleSafely(asm assembler.Assembler, doc assembler.Document, theme assembler.Theme) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s assembler panicked: %v", asm.Format(), r)
		}
	}()
	return asm.Assemble(doc, theme)
}

// ArchiveEnabled reports whether an object store is configured
func (s *Service) ArchiveEnabled() bool {
	return s.store != nil
}

// Archive uploads an artifact under exports/{userID}/ and returns a
// presigned download link
func (s *Service) Archive(ctx context.Context, userID string, artifact *Artifact) (*models.ArchiveResponse, error) {
	if s.store == nil {
		return nil, apperror.New(apperror.CodeStorage, "document archive is not configured")
	}
	if artifact == nil {
		return nil, apperror.Storage(errors.New("nothing to archive"))
	}
	key := fmt.Sprintf("exports/%s/%d_%s", userID, s.now().UnixNano(), artifact.Filename)
	if err := s.store.Put(ctx, key, artifact.Data, artifact.ContentType); err != nil {
		return nil, apperror.Storage(err)
	}
	url, expires, err := s.store.PresignedURL(ctx, key, artifact.Filename)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return &models.ArchiveResponse{
		ObjectKey: key,
		Filename:  artifact.Filename,
		URL:       url,
		ExpiresAt: expires,
	}, nil
}
