// Package pdftext extracts text from PDF documents page by page.
//
// pdfcpu parses the document structure and decodes page content streams; the
// text operators in those streams are interpreted here. Fonts that carry a
// ToUnicode CMap (the norm for CJK inserts) are decoded through it, other
// strings are taken as UTF-16BE (with BOM), UTF-8, or Latin-1.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNotPDF is returned when the data does not start with a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Pages returns the text of every page in page order. Pages without
// extractable text yield "".
func Pages(data []byte) (pages []string, err error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	pages = make([]string, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pages = append(pages, pageText(ctx, pageNr))
	}
	return pages, nil
}

// Text joins the non-empty pages of data with newlines. It returns "" when no
// page has text, which for a well-formed PDF means a scanned image.
func Text(data []byte) (string, error) {
	pages, err := Pages(data)
	if err != nil {
		return "", err
	}
	var kept []string
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n"), nil
}

func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	content, err := io.ReadAll(r)
	if err != nil || len(content) == 0 {
		return ""
	}
	return interpret(content, pageFonts(ctx, pageNr))
}

// pageFonts loads the ToUnicode CMaps of the fonts a page references, keyed
// by resource name. Fonts without one are omitted.
func pageFonts(ctx *model.Context, pageNr int) map[string]*cmap {
	fonts := map[string]*cmap{}
	pageDict, _, inherited, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return fonts
	}
	var res types.Dict
	if obj, ok := pageDict["Resources"]; ok {
		res, _ = ctx.DereferenceDict(obj)
	}
	if res == nil && inherited != nil {
		res = inherited.Resources
	}
	if res == nil {
		return fonts
	}
	fontRes, err := ctx.DereferenceDict(res["Font"])
	if err != nil || fontRes == nil {
		return fonts
	}
	for name, obj := range fontRes {
		fd, err := ctx.DereferenceDict(obj)
		if err != nil || fd == nil {
			continue
		}
		tu, ok := fd["ToUnicode"]
		if !ok {
			continue
		}
		sd, _, err := ctx.DereferenceStreamDict(tu)
		if err != nil || sd == nil {
			continue
		}
		if err := sd.Decode(); err != nil {
			continue
		}
		if cm := parseCMap(sd.Content); cm != nil {
			fonts[name] = cm
		}
	}
	return fonts
}
