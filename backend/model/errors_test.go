package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEngineErrorKindOf(t *testing.T) {
	err := NewError(ErrInvalidFile, "only PDF, DOCX and TXT files are supported")
	if KindOf(err) != ErrInvalidFile {
		t.Errorf("Expected invalid_file, got %s", KindOf(err))
	}

	// Kind survives wrapping
	wrapped := fmt.Errorf("upload rejected: %w", err)
	if KindOf(wrapped) != ErrInvalidFile {
		t.Errorf("Expected kind through wrapping, got %s", KindOf(wrapped))
	}

	// Foreign errors have no kind
	if KindOf(errors.New("plain")) != "" {
		t.Error("Expected empty kind for a foreign error")
	}
	if KindOf(nil) != "" {
		t.Error("Expected empty kind for nil")
	}
}

func TestEngineErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrSubmissionFailed, "Document submission failed", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected the cause to be reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "submission_failed") {
		t.Errorf("Expected kind in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "Document submission failed") {
		t.Errorf("Expected message in output, got %q", err.Error())
	}
}

func TestTruncatePreview(t *testing.T) {
	short := "We accepted clause 4"
	if got := TruncatePreview(short); got != short {
		t.Errorf("Expected short body unchanged, got %q", got)
	}

	long := strings.Repeat("a", 200)
	got := TruncatePreview(long)
	if len([]rune(got)) != ToastPreviewLen+1 {
		t.Errorf("Expected %d runes plus ellipsis, got %d", ToastPreviewLen, len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}

	// Multi-byte text truncates on rune boundaries
	unicode := strings.Repeat("ü", 100)
	got = TruncatePreview(unicode)
	if strings.Contains(got, "�") {
		t.Error("Expected no broken runes in truncated preview")
	}
}
