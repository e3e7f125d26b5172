package blob

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// UploadResult is the outcome of Upload.
type UploadResult struct {
	Success  bool      `json:"success"`
	URL      string    `json:"url,omitempty"`
	Size     int64     `json:"size,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Error    string    `json:"error,omitempty"`
	Code     ErrorCode `json:"code,omitempty"`
}

// imageExtensions maps accepted data URL subtypes onto file extensions.
var imageExtensions = map[string]string{
	"jpg":     ".jpg",
	"jpeg":    ".jpg",
	"png":     ".png",
	"gif":     ".gif",
	"webp":    ".webp",
	"svg":     ".svg",
	"svg+xml": ".svg",
}

// IsDataURL reports whether s looks like a data URL that Upload should handle.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// decodeDataURL validates "data:image/<type>;base64,<payload>" and returns the
// decoded bytes with the extension for <type>. Nothing touches the filesystem.
func decodeDataURL(dataURL string) ([]byte, string, ErrorCode, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return nil, "", CodeInvalidFormat, fmt.Errorf("malformed data URL")
	}
	mediaType, encoding, ok := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	if !ok || encoding != "base64" {
		return nil, "", CodeInvalidFormat, fmt.Errorf("data URL must be base64 encoded")
	}
	mainType, subType, ok := strings.Cut(strings.ToLower(mediaType), "/")
	if !ok || mainType != "image" {
		return nil, "", CodeInvalidFormat, fmt.Errorf("unsupported media type %q", mediaType)
	}
	ext, ok := imageExtensions[subType]
	if !ok {
		return nil, "", CodeInvalidFormat, fmt.Errorf("invalid image format %q: allowed jpg, jpeg, png, gif, webp, svg", subType)
	}

	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, payload)
	// Cheap upper bound before allocating the decoded buffer.
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize+2 {
		return nil, "", CodeFileTooLarge, fmt.Errorf("file too large: max %d bytes", MaxImageSize)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", CodeInvalidFormat, fmt.Errorf("invalid base64 payload: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, "", CodeFileTooLarge, fmt.Errorf("file too large: %d bytes exceeds max %d", len(data), MaxImageSize)
	}
	if len(data) == 0 {
		return nil, "", CodeInvalidFormat, fmt.Errorf("empty image payload")
	}
	return data, ext, "", nil
}

// Upload decodes a base64 image data URL and writes it into folder.
func (s *Storage) Upload(dataURL string, folder Folder) UploadResult {
	if _, ok := ParseFolder(string(folder)); !ok {
		s.record("upload", false)
		return UploadResult{Error: fmt.Sprintf("invalid folder %q", folder), Code: CodeInvalidFolder}
	}
	data, ext, code, err := decodeDataURL(dataURL)
	if err != nil {
		s.record("upload", false)
		return UploadResult{Error: err.Error(), Code: code}
	}

	dir := s.folderDir(folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.uploadIOFailure(fmt.Errorf("create folder: %w", err))
	}
	filename := s.newFilename(folder, ext)
	if err := writeNew(filepath.Join(dir, filename), data); err != nil {
		return s.uploadIOFailure(fmt.Errorf("write image: %w", err))
	}

	s.record("upload", true)
	return UploadResult{
		Success:  true,
		URL:      URL(folder, filename),
		Size:     int64(len(data)),
		Filename: filename,
	}
}

func (s *Storage) uploadIOFailure(err error) UploadResult {
	s.log.Warn("image upload failed", zap.Error(err))
	s.record("upload", false)
	return UploadResult{Error: err.Error(), Code: CodeIO}
}

// writeNew creates path exclusively so an unlikely name collision never
// overwrites an existing file.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
