package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"writ_docket_go/models"
)

const (
	// MaxAttachmentSize is the largest proceeding attachment accepted
	MaxAttachmentSize = 250 * 1024
	attachmentPrefix  = "proceedings"
	// AttachmentURLPrefix is where attachments are downloaded from
	AttachmentURLPrefix = "/api/v1/attachments/"
)

var allowedAttachmentMimes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel": true,
}

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	zipMagic  = []byte("PK\x03\x04")
	oleMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)
	storedNameRe    = regexp.MustCompile(`^[a-zA-Z0-9_]+-\d+-\d+\.[a-zA-Z]+$`)
)

// ErrInvalidAttachmentName rejects names that SaveAttachment could not have produced
var ErrInvalidAttachmentName = errors.New("invalid attachment name")

func contentTypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	}
	return "application/octet-stream"
}

// matchesExtension checks the leading bytes of a file against its extension
func matchesExtension(ext string, content []byte) bool {
	switch ext {
	case ".pdf":
		return bytes.HasPrefix(content, []byte("%PDF"))
	case ".png":
		return bytes.HasPrefix(content, pngMagic)
	case ".jpg", ".jpeg":
		return bytes.HasPrefix(content, jpegMagic)
	case ".xlsx":
		if !bytes.HasPrefix(content, zipMagic) {
			return false
		}
		f, err := excelize.OpenReader(bytes.NewReader(content))
		if err != nil {
			return false
		}
		f.Close()
		return true
	case ".xls":
		return bytes.HasPrefix(content, oleMagic)
	}
	return false
}

// ValidateAttachment checks size, declared type, extension and content of an
// uploaded proceeding file.
func ValidateAttachment(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxAttachmentSize {
		return NewValidationError("attachments", "file size exceeds 250 KB limit")
	}

	mimeType := strings.ToLower(fileHeader.Header.Get("Content-Type"))
	if !allowedAttachmentMimes[mimeType] {
		return NewValidationError("attachments", "invalid file type, only PDF, PNG, JPEG, JPG and Excel files are allowed")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if contentTypeForExtension(ext) == "application/octet-stream" {
		return NewValidationError("attachments", "invalid file extension, only PDF, PNG, JPEG, JPG and Excel files are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// The size limit keeps this read small
	content, err := io.ReadAll(io.LimitReader(file, MaxAttachmentSize+1))
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}
	if len(content) > MaxAttachmentSize {
		return NewValidationError("attachments", "file size exceeds 250 KB limit")
	}
	if !matchesExtension(ext, content) {
		return NewValidationError("attachments", fmt.Sprintf("file content does not match %s", ext))
	}
	return nil
}

// attachmentName builds <sanitised-base>-<unix-ms>-<random><ext>
func attachmentName(original string) string {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(filepath.Base(original), ext)
	base = unsafeNameChars.ReplaceAllString(base, "_")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s-%d-%d%s", base, time.Now().UnixMilli(), rand.Int63n(1_000_000_000), strings.ToLower(ext))
}

// AttachmentPath returns the storage key of a stored attachment
func AttachmentPath(filename string) (string, error) {
	if !storedNameRe.MatchString(filename) {
		return "", ErrInvalidAttachmentName
	}
	return attachmentPrefix + "/" + filename, nil
}

// AttachmentURL is the download location of a stored attachment
func AttachmentURL(filename string) string {
	return AttachmentURLPrefix + filename
}

// SaveAttachment stores a validated upload and returns its reference
func SaveAttachment(ctx context.Context, fileHeader *multipart.FileHeader) (*models.Attachment, error) {
	if Storage == nil {
		return nil, &DependencyError{Dependency: "attachment store", Err: errors.New("not initialized")}
	}

	filename := attachmentName(fileHeader.Filename)
	key, err := AttachmentPath(filename)
	if err != nil {
		return nil, err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(filename)
	if _, err := Storage.UploadReader(ctx, src, key, contentTypeForExtension(ext), fileHeader.Size); err != nil {
		return nil, &DependencyError{Dependency: "attachment store", Err: err}
	}

	return &models.Attachment{FileName: filename, FileURL: AttachmentURL(filename)}, nil
}

// OpenAttachment streams a stored attachment
func OpenAttachment(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	key, err := AttachmentPath(filename)
	if err != nil {
		return nil, "", err
	}
	if Storage == nil {
		return nil, "", &DependencyError{Dependency: "attachment store", Err: errors.New("not initialized")}
	}
	return Storage.Get(ctx, key)
}

// DeleteAttachment removes a stored attachment; a missing file is not an error
func DeleteAttachment(ctx context.Context, filename string) error {
	key, err := AttachmentPath(filename)
	if err != nil {
		return err
	}
	if Storage == nil {
		return nil
	}
	return Storage.Delete(ctx, key)
}

// DiscardAttachments deletes files saved for a request that then failed.
// Failures are logged and otherwise ignored.
func DiscardAttachments(ctx context.Context, attachments []models.Attachment) {
	for _, a := range attachments {
		if err := DeleteAttachment(ctx, a.FileName); err != nil {
			log.Warn().Err(err).Str("file", a.FileName).Msg("Failed to discard orphaned attachment")
		}
	}
}

// RecordUpload audits a standalone attachment upload
func RecordUpload(deps *Deps, caller Caller, a *models.Attachment) {
	deps.record(NewAuditEntry(caller.AuditContext(), models.AuditActionUploadAttachment, models.ResourceTypeAttachment, a.FileName,
		fmt.Sprintf("Attachment %s uploaded", a.FileName)))
}
