// Package savefile reads life-simulation save documents and extracts the
// person records they contain.
//
// A save document is XML. Every element named GenerationsSimData is a person
// node; the first CurrentYear element outside a person node is the
// document's current year. Nothing else about the document's layout is
// checked.
package savefile

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/JonMunkholm/simroster/internal/catalog"
	"github.com/JonMunkholm/simroster/internal/roster"
)

const (
	personTag      = "GenerationsSimData"
	currentYearTag = "CurrentYear"
)

// Document is the result of reading one save document.
type Document struct {
	CurrentYear int
	// Persons counts person nodes seen, including deceased and skipped ones.
	Persons int
	// Deceased counts person nodes excluded because IsDead was "true".
	Deceased int
	// Records holds the living persons in document order.
	Records []roster.Record
	Issues  []Issue
}

// Read parses a save document and extracts its living persons using cat to
// resolve item references. cat must be complete before Read is called.
//
// Structural problems (no element at all, malformed XML, no usable current
// year) return an error and no document. Per-person problems are reported in
// Document.Issues and never fail the read.
func Read(ctx context.Context, r io.Reader, cat catalog.Catalog) (*Document, error) {
	persons, year, err := scan(ctx, r)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		CurrentYear: year,
		Persons:     len(persons),
		Records:     make([]roster.Record, 0, len(persons)),
	}

	for i, p := range persons {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if IsDeceased(p) {
			doc.Deceased++
			continue
		}

		rec, issues, err := extract(p, year, cat)
		for _, is := range issues {
			is.Index = i
			doc.Issues = append(doc.Issues, is)
		}
		if err != nil {
			doc.Issues = append(doc.Issues, Issue{
				Index:   i,
				Code:    IssueMissingID,
				Message: "person skipped: no numeric ID",
				Raw:     leafText(p.Find(tagID)),
			})
			continue
		}
		doc.Records = append(doc.Records, rec)
	}

	return doc, nil
}

// scan streams the document, materializing person nodes and locating the
// current year.
func scan(ctx context.Context, r io.Reader) ([]*Element, int, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var (
		persons  []*Element
		sawRoot  bool
		yearText *string
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, wrapDecodeError(err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true

		switch {
		case start.Name.Local == personTag:
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			el, err := readElement(dec, start)
			if err != nil {
				return nil, 0, wrapDecodeError(err)
			}
			persons = append(persons, el)

		case start.Name.Local == currentYearTag && yearText == nil:
			el, err := readElement(dec, start)
			if err != nil {
				return nil, 0, wrapDecodeError(err)
			}
			text := strings.TrimSpace(el.Text())
			yearText = &text
		}
	}

	if !sawRoot {
		return nil, 0, ErrNoRootElement
	}
	if yearText == nil {
		return nil, 0, ErrMissingCurrentYear
	}
	year, err := strconv.Atoi(*yearText)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %q is not a year", ErrMissingCurrentYear, *yearText)
	}
	return persons, year, nil
}

// charsetReader decodes documents that declare a non-UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if IsUTF8(label) {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// DeclaredEncoding returns the encoding named by the XML declaration at the
// start of prolog, or "" when there is no declaration or it names none.
// prolog needs to hold only the first few hundred bytes of the document.
func DeclaredEncoding(prolog []byte) string {
	p := bytes.TrimLeft(prolog, " \t\r\n")
	if !bytes.HasPrefix(p, []byte("<?xml")) {
		return ""
	}
	end := bytes.Index(p, []byte("?>"))
	if end < 0 {
		return ""
	}
	decl := p[len("<?xml"):end]

	i := bytes.Index(decl, []byte("encoding"))
	if i < 0 {
		return ""
	}
	rest := bytes.TrimLeft(decl[i+len("encoding"):], " \t\r\n")
	if len(rest) == 0 || rest[0] != '=' {
		return ""
	}
	rest = bytes.TrimLeft(rest[1:], " \t\r\n")
	if len(rest) == 0 || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	quote := rest[0]
	j := bytes.IndexByte(rest[1:], quote)
	if j < 0 {
		return ""
	}
	return string(rest[1 : 1+j])
}

// IsUTF8 reports whether an encoding label names UTF-8.
func IsUTF8(label string) bool {
	return strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8")
}
