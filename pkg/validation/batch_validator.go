// Package validation checks request input before any work is scheduled.
package validation

import (
	"fmt"
	"strings"

	apperrors "go-dashboard-inspector/internal/errors"
	"go-dashboard-inspector/internal/imaging"
)

// BatchLimits bounds one upload request
type BatchLimits struct {
	MaxFiles         int
	MaxFileSize      int64
	MaxPromptLength  int
	MaxContextLength int
}

// DefaultBatchLimits returns the limits used by the HTTP surface
func DefaultBatchLimits() BatchLimits {
	return BatchLimits{
		MaxFiles:         50,
		MaxFileSize:      16 * 1024 * 1024,
		MaxPromptLength:  8000,
		MaxContextLength: 2000,
	}
}

// UploadInfo is what the validator needs to know about one uploaded file
type UploadInfo struct {
	Filename string
	Size     int64
}

// BatchValidator rejects batches that cannot produce any record
type BatchValidator struct {
	limits BatchLimits
}

// NewBatchValidator creates a validator with default limits
func NewBatchValidator() *BatchValidator {
	return &BatchValidator{limits: DefaultBatchLimits()}
}

// NewBatchValidatorWithLimits creates a validator with custom limits
func NewBatchValidatorWithLimits(limits BatchLimits) *BatchValidator {
	return &BatchValidator{limits: limits}
}

// ValidateUploads checks the request as a whole: the list must be non-empty,
// within limits and no file may exceed the size cap. Individual files with an
// unsupported type are not an error here; see Accept.
func (v *BatchValidator) ValidateUploads(files []UploadInfo) error {
	if len(files) == 0 {
		return apperrors.NewValidationError("No files uploaded", nil)
	}
	if strings.TrimSpace(files[0].Filename) == "" {
		return apperrors.NewValidationError("No files selected", nil)
	}
	if v.limits.MaxFiles > 0 && len(files) > v.limits.MaxFiles {
		return apperrors.NewValidationError(
			fmt.Sprintf("too many files: %d (max %d)", len(files), v.limits.MaxFiles), nil)
	}
	for _, f := range files {
		if v.limits.MaxFileSize > 0 && f.Size > v.limits.MaxFileSize {
			return apperrors.NewValidationError(
				fmt.Sprintf("file %s exceeds %d bytes", f.Filename, v.limits.MaxFileSize), nil)
		}
	}
	return nil
}

// Accept reports whether one file should be processed. Rejected files are
// skipped and counted, not fatal.
func (v *BatchValidator) Accept(f UploadInfo) bool {
	return strings.TrimSpace(f.Filename) != "" && f.Size != 0 && imaging.IsAllowed(f.Filename)
}

// ValidateInstructions bounds the free-text fields sent to the vision model
func (v *BatchValidator) ValidateInstructions(context, customPrompt string) error {
	if v.limits.MaxContextLength > 0 && len([]rune(context)) > v.limits.MaxContextLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("context exceeds %d characters", v.limits.MaxContextLength), nil)
	}
	if v.limits.MaxPromptLength > 0 && len([]rune(customPrompt)) > v.limits.MaxPromptLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("custom prompt exceeds %d characters", v.limits.MaxPromptLength), nil)
	}
	return nil
}
