package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"writ_docket_go/models"
)

func newFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="attachments"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["attachments"][0]
}

func xlsxBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Reply"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestValidateAttachment(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj\n")
	png := append([]byte("\x89PNG\r\n\x1a\n"), 0, 0, 0, 13)

	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
		wantErr     bool
	}{
		{"pdf", "order.pdf", "application/pdf", pdf, false},
		{"png", "scan.PNG", "image/png", png, false},
		{"jpeg", "photo.jpeg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, false},
		{"xlsx", "reply.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsxBytes(t), false},
		{"xls", "old.xls", "application/vnd.ms-excel", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0}, false},
		{"too large", "big.pdf", "application/pdf", append(pdf, make([]byte, MaxAttachmentSize)...), true},
		{"bad mime", "notes.txt", "text/plain", []byte("hello"), true},
		{"bad extension", "order.exe", "application/pdf", pdf, true},
		{"content mismatch", "order.pdf", "application/pdf", png, true},
		{"zip posing as xlsx", "fake.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("PK\x03\x04garbage"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttachment(newFileHeader(t, tt.filename, tt.contentType, tt.content))
			if tt.wantErr {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAttachmentName(t *testing.T) {
	name := attachmentName("Order of 12.03 (final).PDF")
	assert.Regexp(t, `^Order_of_12_03__final_-\d+-\d+\.pdf$`, name)

	_, err := AttachmentPath(name)
	assert.NoError(t, err)
}

func TestAttachmentPath(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{"generated name", "order-1700000000000-123.pdf", false},
		{"traversal", "../order-1-1.pdf", true},
		{"nested", "a/order-1-1.pdf", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := AttachmentPath(tt.file)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAttachmentName)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "proceedings/"+tt.file, key)
			}
		})
	}
}

func TestSaveOpenDeleteAttachment(t *testing.T) {
	previous := Storage
	Storage = NewLocalStorage(t.TempDir())
	t.Cleanup(func() { Storage = previous })

	ctx := context.Background()
	content := []byte("%PDF-1.4 order")

	saved, err := SaveAttachment(ctx, newFileHeader(t, "order.pdf", "application/pdf", content))
	require.NoError(t, err)
	assert.Equal(t, AttachmentURLPrefix+saved.FileName, saved.FileURL)

	reader, contentType, err := OpenAttachment(ctx, saved.FileName)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, "application/pdf", contentType)

	DiscardAttachments(ctx, []models.Attachment{*saved})
	_, _, err = OpenAttachment(ctx, saved.FileName)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
