// Package blob stores images on the local filesystem under a fixed set of
// folders and addresses them by URL (/storage/<folder>/<filename>).
//
// Per-request operations never return Go errors: they report a result value
// with Success and Error fields so HTTP handlers can always answer with a
// well-formed body.
package blob

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Folder is one of the logical buckets images are partitioned into.
type Folder string

const (
	FolderBlog    Folder = "blog"
	FolderEvents  Folder = "events"
	FolderGallery Folder = "gallery"
	FolderUploads Folder = "uploads"
	FolderTemp    Folder = "temp"
)

// Folders lists every valid folder in a stable order.
var Folders = []Folder{FolderBlog, FolderEvents, FolderGallery, FolderUploads, FolderTemp}

// URLPrefix is the path prefix every stored file URL starts with.
const URLPrefix = "/storage/"

// MaxImageSize is the largest decoded payload Upload accepts.
const MaxImageSize = 10 << 20 // 10MiB

// ErrorCode classifies a failed operation.
type ErrorCode string

const (
	CodeInvalidFormat ErrorCode = "InvalidFormat"
	CodeFileTooLarge  ErrorCode = "FileTooLarge"
	CodeInvalidFolder ErrorCode = "InvalidFolder"
	CodeInvalidURL    ErrorCode = "InvalidURL"
	CodeNotFound      ErrorCode = "NotFound"
	CodeIO            ErrorCode = "IOError"
)

var (
	errInvalidFolder = errors.New("invalid storage folder")
	errInvalidURL    = errors.New("invalid storage URL")
)

// ParseFolder maps s onto the closed folder set.
func ParseFolder(s string) (Folder, bool) {
	for _, f := range Folders {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Storage is a filesystem-backed image store rooted at a directory.
type Storage struct {
	root string
	log  *zap.Logger
	ops  *prometheus.CounterVec
	now  func() time.Time
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for I/O failures and cleanup sweeps.
func WithLogger(l *zap.Logger) Option {
	return func(s *Storage) {
		s.log = l
	}
}

// WithMetrics counts operations on a counter vec labelled by op and outcome.
func WithMetrics(ops *prometheus.CounterVec) Option {
	return func(s *Storage) {
		s.ops = ops
	}
}

// WithClock overrides the time source (file names and cleanup cutoffs).
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// New creates a Storage rooted at root. Folders are created lazily.
func New(root string, opts ...Option) *Storage {
	s := &Storage{
		root: root,
		log:  zap.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory that holds the folders.
func (s *Storage) Root() string {
	return s.root
}

// URL returns the public URL of filename inside folder.
func URL(folder Folder, filename string) string {
	return URLPrefix + string(folder) + "/" + filename
}

// IsStorageURL reports whether u points into the storage namespace.
func IsStorageURL(u string) bool {
	_, _, err := splitURL(u)
	return err == nil
}

func (s *Storage) folderDir(f Folder) string {
	return filepath.Join(s.root, string(f))
}

// resolve maps a storage URL onto its folder, file name and filesystem path.
func (s *Storage) resolve(u string) (Folder, string, string, error) {
	folder, name, err := splitURL(u)
	if err != nil {
		return "", "", "", err
	}
	return folder, name, filepath.Join(s.folderDir(folder), name), nil
}

// splitURL accepts "/storage/<folder>/<name>" or an absolute URL with that path.
func splitURL(u string) (Folder, string, error) {
	p := u
	if !strings.HasPrefix(u, "/") {
		parsed, err := url.Parse(u)
		if err != nil {
			return "", "", errInvalidURL
		}
		p = parsed.Path
	}
	if !strings.HasPrefix(p, URLPrefix) {
		return "", "", errInvalidURL
	}
	rest := strings.TrimPrefix(p, URLPrefix)
	folderName, name, ok := strings.Cut(rest, "/")
	if !ok {
		return "", "", errInvalidURL
	}
	folder, ok := ParseFolder(folderName)
	if !ok {
		return "", "", errInvalidFolder
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || path.Clean(name) != name {
		return "", "", errInvalidURL
	}
	return folder, name, nil
}

func (s *Storage) record(op string, ok bool) {
	if s.ops == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	s.ops.WithLabelValues(op, outcome).Inc()
}

func urlErrorCode(err error) ErrorCode {
	if errors.Is(err, errInvalidFolder) {
		return CodeInvalidFolder
	}
	return CodeInvalidURL
}
