package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-pdf/fpdf"
)

// buildTextPDF produces a small PDF with real embedded text, so the
// extractor can be exercised without fixture files.
func buildTextPDF(t *testing.T, lines []string) []byte {
	t.Helper()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		pdf.CellFormat(0, 8, line, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Failed to build test PDF: %v", err)
	}
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	content := buildTextPDF(t, []string{
		"CONTRAT DE PRESTATION DE SERVICES",
		"Entre Acme SAS et Globex SARL",
		"Le prestataire fournit des services de developpement logiciel.",
	})

	text, err := ExtractText(content)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text == "" {
		t.Fatal("Expected non-empty extracted text")
	}
}

func TestExtractTextMalformed(t *testing.T) {
	_, err := ExtractText([]byte("this is not a PDF document at all"))
	if err == nil {
		t.Fatal("Expected error for malformed PDF")
	}
	if !errors.Is(err, ErrUnreadablePDF) {
		t.Errorf("Expected ErrUnreadablePDF, got %v", err)
	}
}

func TestExtractTextEmpty(t *testing.T) {
	_, err := ExtractText(nil)
	if !errors.Is(err, ErrUnreadablePDF) {
		t.Errorf("Expected ErrUnreadablePDF for empty input, got %v", err)
	}
}

func TestBytesReaderAt(t *testing.T) {
	r := newBytesReaderAt([]byte("hello world"))

	buf := make([]byte, 5)
	n, err := r.ReadAt(buf, 0)
	if err != nil || n != 5 {
		t.Fatalf("ReadAt(0) = %d, %v", n, err)
	}
	if string(buf) != "hello" {
		t.Errorf("Unexpected read: %s", buf)
	}

	n, err = r.ReadAt(buf, 6)
	if n != 5 || string(buf[:n]) != "world" {
		t.Errorf("ReadAt(6) = %d %q, err %v", n, buf[:n], err)
	}

	if _, err := r.ReadAt(buf, 100); err == nil {
		t.Error("Expected EOF past end")
	}
	if _, err := r.ReadAt(buf, -1); err == nil {
		t.Error("Expected error for negative offset")
	}
}
