package blob

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// Result is the outcome of an operation that produces no new file.
type Result struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
}

// TransferResult is the outcome of Move and Copy.
type TransferResult struct {
	Success  bool      `json:"success"`
	URL      string    `json:"url,omitempty"`
	Filename string    `json:"filename,omitempty"`
	Error    string    `json:"error,omitempty"`
	Code     ErrorCode `json:"code,omitempty"`
}

// Info describes a stored file. Only Exists is set when the file is missing.
// CreatedAt falls back to the modification time where the platform does not
// expose a birth time.
type Info struct {
	Exists     bool       `json:"exists"`
	URL        string     `json:"url,omitempty"`
	Size       int64      `json:"size,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	ModifiedAt *time.Time `json:"modifiedAt,omitempty"`
	MimeType   string     `json:"mimeType,omitempty"`
	Width      int        `json:"width,omitempty"`
	Height     int        `json:"height,omitempty"`
}

// Delete removes the file addressed by u.
func (s *Storage) Delete(u string) Result {
	_, _, p, err := s.resolve(u)
	if err != nil {
		s.record("delete", false)
		return Result{Error: err.Error(), Code: urlErrorCode(err)}
	}
	if _, err := os.Stat(p); err != nil {
		s.record("delete", false)
		return Result{Error: "File not found", Code: CodeNotFound}
	}
	if err := os.Remove(p); err != nil {
		s.log.Warn("image delete failed", zap.String("url", u), zap.Error(err))
		s.record("delete", false)
		return Result{Error: err.Error(), Code: CodeIO}
	}
	s.record("delete", true)
	return Result{Success: true}
}

// Info reports existence, size, timestamps, sniffed MIME type and, for raster
// images, pixel dimensions.
func (s *Storage) Info(u string) Info {
	_, _, p, err := s.resolve(u)
	if err != nil {
		return Info{}
	}
	st, err := os.Stat(p)
	if err != nil || !st.Mode().IsRegular() {
		return Info{}
	}
	mod := st.ModTime().UTC()
	info := Info{
		Exists:     true,
		URL:        u,
		Size:       st.Size(),
		CreatedAt:  &mod,
		ModifiedAt: &mod,
	}
	if mt, err := mimetype.DetectFile(p); err == nil {
		info.MimeType = mt.String()
	}
	if f, err := os.Open(p); err == nil {
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			info.Width, info.Height = cfg.Width, cfg.Height
		}
		f.Close()
	}
	return info
}

// Move relocates the file into folder, keeping its file name.
func (s *Storage) Move(u string, folder Folder) TransferResult {
	srcFolder, name, src, err := s.resolve(u)
	if err != nil {
		s.record("move", false)
		return TransferResult{Error: err.Error(), Code: urlErrorCode(err)}
	}
	if _, ok := ParseFolder(string(folder)); !ok {
		s.record("move", false)
		return TransferResult{Error: fmt.Sprintf("invalid folder %q", folder), Code: CodeInvalidFolder}
	}
	if _, err := os.Stat(src); err != nil {
		s.record("move", false)
		return TransferResult{Error: "Source file not found", Code: CodeNotFound}
	}
	if srcFolder == folder {
		s.record("move", true)
		return TransferResult{Success: true, URL: u, Filename: name}
	}

	dir := s.folderDir(folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.transferIOFailure("move", fmt.Errorf("create folder: %w", err))
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(src, dst); err != nil {
		// Rename fails across devices; fall back to copy then remove.
		if err := copyFile(src, dst); err != nil {
			return s.transferIOFailure("move", fmt.Errorf("move image: %w", err))
		}
		if err := os.Remove(src); err != nil {
			return s.transferIOFailure("move", fmt.Errorf("remove source: %w", err))
		}
	}
	s.record("move", true)
	return TransferResult{Success: true, URL: URL(folder, name), Filename: name}
}

// Copy duplicates the file into folder under a freshly generated name.
func (s *Storage) Copy(u string, folder Folder) TransferResult {
	_, name, src, err := s.resolve(u)
	if err != nil {
		s.record("copy", false)
		return TransferResult{Error: err.Error(), Code: urlErrorCode(err)}
	}
	if _, ok := ParseFolder(string(folder)); !ok {
		s.record("copy", false)
		return TransferResult{Error: fmt.Sprintf("invalid folder %q", folder), Code: CodeInvalidFolder}
	}
	if _, err := os.Stat(src); err != nil {
		s.record("copy", false)
		return TransferResult{Error: "Source file not found", Code: CodeNotFound}
	}

	dir := s.folderDir(folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.transferIOFailure("copy", fmt.Errorf("create folder: %w", err))
	}
	filename := s.newFilename(folder, filepath.Ext(name))
	if err := copyFile(src, filepath.Join(dir, filename)); err != nil {
		return s.transferIOFailure("copy", fmt.Errorf("copy image: %w", err))
	}
	s.record("copy", true)
	return TransferResult{Success: true, URL: URL(folder, filename), Filename: filename}
}

func (s *Storage) transferIOFailure(op string, err error) TransferResult {
	s.log.Warn("image "+op+" failed", zap.Error(err))
	s.record(op, false)
	return TransferResult{Error: err.Error(), Code: CodeIO}
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()
	_, err = io.Copy(out, in)
	return err
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
