package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
	"github.com/SpikeIreland/clarence-sub004/backend/model"
	"github.com/ledongthuc/pdf"
)

// FileKind is the accepted upload format, decided from the file name.
type FileKind string

const (
	KindPDF  FileKind = "pdf"
	KindDOCX FileKind = "docx"
	KindText FileKind = "txt"
)

// Extractor turns an accepted upload into plain text. Validation always
// runs before extraction, and extraction before any network call.
type Extractor struct {
	config *config.UploadConfig
}

func NewExtractor(cfg *config.UploadConfig) *Extractor {
	return &Extractor{config: cfg}
}

// Validate checks the file name and size against the intake policy. It
// performs no I/O; violations fail fast with ErrInvalidFile.
func (e *Extractor) Validate(fileName string, size int64) (FileKind, error) {
	var kind FileKind
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		kind = KindPDF
	case ".docx":
		kind = KindDOCX
	case ".txt":
		kind = KindText
	default:
		return "", model.NewError(model.ErrInvalidFile,
			"Only PDF, DOCX and plain text files are supported")
	}

	if size > e.config.MaxSizeBytes {
		return "", model.NewError(model.ErrInvalidFile,
			fmt.Sprintf("File exceeds the %d MiB limit", e.config.MaxSizeBytes>>20))
	}

	return kind, nil
}

// Extract produces a single plain-text string from the file content.
// Results shorter than the configured floor fail with ErrEmptyDocument.
func (e *Extractor) Extract(kind FileKind, data []byte) (string, error) {
	var text string
	var err error

	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindText:
		text = string(data)
	default:
		return "", model.NewError(model.ErrInvalidFile, "Unsupported file format")
	}
	if err != nil {
		return "", model.WrapError(model.ErrInvalidFile, "Could not read document content", err)
	}

	if len(strings.TrimSpace(text)) < e.config.MinExtractedChars {
		return "", model.NewError(model.ErrEmptyDocument,
			fmt.Sprintf("Document contains too little text (minimum %d characters)", e.config.MinExtractedChars))
	}

	return text, nil
}

// extractPDF concatenates the text of every page in order, pages
// separated by a blank line.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n\n"), nil
}

// extractDOCX pulls the raw text out of word/document.xml. A DOCX file
// is a ZIP archive, so this mirrors how parser result archives are
// unpacked elsewhere: open the archive, locate the target entry, decode.
func extractDOCX(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	for _, file := range zipReader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()

		return decodeDOCXBody(rc)
	}

	return "", fmt.Errorf("no document.xml found in archive")
}

// decodeDOCXBody walks the WordprocessingML token stream collecting text
// runs; paragraph ends become newlines.
func decodeDOCXBody(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}
