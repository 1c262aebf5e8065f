package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSize is the upload cap: 5 MiB, matching what a product photo needs.
const MaxSize = 5 << 20

// URLPrefix is the path under which stored files are served.
const URLPrefix = "/uploads"

var ErrInvalidUpload = errors.New("invalid upload")

// allowedExts is the extension allow-list. Extensions are matched lowercase.
var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Store persists uploaded product images on the local filesystem under a
// single directory and hands back server-relative reference paths.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory files are stored in. The server mounts it under
// URLPrefix for static serving.
func (s *Store) Dir() string {
	return s.dir
}

// Save validates and persists a single uploaded file, returning its reference
// path ("/uploads/<name>"). It fails with ErrInvalidUpload if the extension is
// not on the allow-list, the sniffed content type is not an image, or the file
// exceeds MaxSize. The stored name is server-controlled: a nanosecond
// timestamp plus a random suffix, so concurrent uploads cannot collide.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExts[ext] {
		return "", fmt.Errorf("%w: file type %q not allowed (jpg, jpeg, png only)", ErrInvalidUpload, ext)
	}
	if fh.Size > MaxSize {
		return "", fmt.Errorf("%w: file exceeds %d byte limit", ErrInvalidUpload, MaxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	// Sniff the real content type; the extension alone is client-controlled.
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: content type %q is not an image", ErrInvalidUpload, contentType)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), randomSuffix(), ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	// Cap the copy as well: fh.Size comes from the client.
	written, err := io.Copy(dst, io.LimitReader(f, MaxSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if written > MaxSize {
		os.Remove(path)
		return "", fmt.Errorf("%w: file exceeds %d byte limit", ErrInvalidUpload, MaxSize)
	}

	return URLPrefix + "/" + name, nil
}

// Discard removes a previously stored file by its reference path. Best-effort:
// a missing file is not an error, and callers treat any failure as log-only.
func (s *Store) Discard(refPath string) error {
	name := strings.TrimPrefix(refPath, URLPrefix+"/")
	// Refuse anything that would escape the uploads directory.
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("refusing to remove %q: not an upload reference", refPath)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func randomSuffix() string {
	// uuid's random source, trimmed to the 8-char suffix the filenames need.
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
