// Package storage holds the places images and reports live outside the
// pipeline: the upload folder, remote HTTP sources and the blob artifact sink.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/imaging"
	"go-dashboard-inspector/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SecureFilename reduces a client supplied name to a safe base name
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// UploadStore keeps uploaded screenshots in one folder under collision-free names
type UploadStore struct {
	dir     string
	newName func() string
}

// NewUploadStore creates a store rooted at dir. The folder is created lazily.
func NewUploadStore(dir string) *UploadStore {
	return &UploadStore{
		dir:     dir,
		newName: func() string { return uuid.NewString() },
	}
}

// Dir returns the upload folder
func (s *UploadStore) Dir() string {
	return s.dir
}

// Save copies r to <uuid>_<secure name> and returns the stored path.
// Names with a non-image extension are rejected before anything is written.
func (s *UploadStore) Save(filename string, r io.Reader) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", apperrors.NewValidationError("file name is empty", nil)
	}
	if !imaging.IsAllowed(filename) {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), nil)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", apperrors.NewWriteFailureError("cannot create upload folder", err)
	}

	path := filepath.Join(s.dir, s.newName()+"_"+SecureFilename(filename))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", apperrors.NewWriteFailureError("cannot create upload file", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", apperrors.NewWriteFailureError("cannot store upload", err)
	}

	logger.WithFields(logrus.Fields{
		"filename": filename,
		"path":     path,
		"bytes":    n,
	}).Debug("Upload stored")
	return path, nil
}

// Remove deletes a stored upload; a missing file is not an error
func (s *UploadStore) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).WithField("path", path).Warn("Failed to remove upload")
	}
}

// OriginalName strips the <uuid>_ prefix added by Save
func OriginalName(stored string) string {
	base := filepath.Base(stored)
	if len(base) > 37 && base[36] == '_' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}
