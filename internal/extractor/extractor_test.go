package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	pages []string
	err   error
}

func (f fakeReader) ReadPages(path string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, len(f.pages))
	copy(out, f.pages)
	return out, nil
}

type fakeOCR struct {
	texts map[int]string
	errs  map[int]error
	calls []int
}

func (f *fakeOCR) RecognizePage(ctx context.Context, path string, page int) (string, error) {
	f.calls = append(f.calls, page)
	if err, ok := f.errs[page]; ok {
		return "", err
	}
	return f.texts[page], nil
}

func TestExtractPagesNormalizesText(t *testing.T) {
	e := NewWith(fakeReader{pages: []string{"  line one\nline two \n"}}, &fakeOCR{})

	pages, err := e.ExtractPages(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "line one line two", pages[0])
}

func TestPagesWithTextSkipOCR(t *testing.T) {
	ocr := &fakeOCR{}
	e := NewWith(fakeReader{pages: []string{"page one", "page two"}}, ocr)

	_, err := e.ExtractPages(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Empty(t, ocr.calls, "OCR should never run for pages with embedded text")
}

func TestEmptyPagesFallBackToOCR(t *testing.T) {
	ocr := &fakeOCR{texts: map[int]string{1: "scanned\ntext"}}
	e := NewWith(fakeReader{pages: []string{"typed text", "   \n  "}}, ocr)

	pages, err := e.ExtractPages(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "typed text", pages[0])
	assert.Equal(t, "scanned text", pages[1])
	assert.Equal(t, []int{1}, ocr.calls)
}

func TestOCRFailureIsIsolatedPerPage(t *testing.T) {
	ocr := &fakeOCR{
		texts: map[int]string{2: "recovered"},
		errs:  map[int]error{0: errors.New("tesseract unavailable")},
	}
	e := NewWith(fakeReader{pages: []string{"", "typed", ""}}, ocr)

	pages, err := e.ExtractPages(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "", pages[0], "failed page degrades to empty text")
	assert.Equal(t, "typed", pages[1])
	assert.Equal(t, "recovered", pages[2])
}

func TestBlankPageYieldsEmptyString(t *testing.T) {
	ocr := &fakeOCR{texts: map[int]string{0: "  \n "}}
	e := NewWith(fakeReader{pages: []string{""}}, ocr)

	pages, err := e.ExtractPages(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "", pages[0])
}

func TestReaderErrorPropagates(t *testing.T) {
	readErr := errors.New("no such file")
	e := NewWith(fakeReader{err: readErr}, &fakeOCR{})

	_, err := e.ExtractPages(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, readErr)
}
