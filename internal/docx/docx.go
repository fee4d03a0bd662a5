// Package docx reads, edits and writes WordprocessingML (.docx) packages.
// Only what document generation needs is supported: appending styled body
// paragraphs and replacing the default footer of the last section.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	partContentTypes = "[Content_Types].xml"
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"

	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// ErrNotDocument is returned by Open for archives without a main document part.
var ErrNotDocument = errors.New("not a wordprocessing package")

// Document is an in-memory .docx package. Parts keep their archive order so a
// saved copy of a template differs from it only where it was edited.
type Document struct {
	parts  map[string][]byte
	order  []string
	footer string // part name of the footer set by SetFooter
}

// New returns an empty A4 document with Normal and Heading1 styles.
func New() *Document {
	d := &Document{parts: make(map[string][]byte)}
	d.put(partContentTypes, []byte(blankContentTypes))
	d.put("_rels/.rels", []byte(blankPackageRels))
	d.put(partDocument, []byte(blankDocument))
	d.put(partDocumentRels, []byte(blankDocumentRels))
	d.put("word/styles.xml", []byte(blankStyles))
	return d
}

// Open reads the package at path. The file itself is never modified.
func Open(path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer zr.Close()

	d := &Document{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		d.put(f.Name, b)
	}
	if _, ok := d.parts[partDocument]; !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotDocument)
	}
	if _, ok := d.parts[partContentTypes]; !ok {
		return nil, fmt.Errorf("%s: missing %s: %w", path, partContentTypes, ErrNotDocument)
	}
	return d, nil
}

func (d *Document) put(name string, b []byte) {
	if _, ok := d.parts[name]; !ok {
		d.order = append(d.order, name)
	}
	d.parts[name] = b
}

// Part returns the raw bytes of a package part.
func (d *Document) Part(name string) ([]byte, bool) {
	b, ok := d.parts[name]
	return b, ok
}

// Save writes the package to path through a temporary file in the same
// directory, so a failed save never leaves a truncated document behind.
func (d *Document) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docx-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	for _, name := range d.order {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			tmp.Close()
			return fmt.Errorf("write part %s: %w", name, err)
		}
		if _, err := w.Write(d.parts[name]); err != nil {
			tmp.Close()
			return fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("close archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// Text returns the plain text of the main document, one line per paragraph.
func (d *Document) Text() string {
	return partText(d.parts[partDocument])
}

// FooterText returns the plain text of the footer set by SetFooter.
func (d *Document) FooterText() string {
	if d.footer == "" {
		return ""
	}
	return partText(d.parts[d.footer])
}

func partText(b []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(b))
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != nsW {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				out.WriteByte('\n')
			case "tab":
				out.WriteByte('\t')
			}
		case xml.EndElement:
			if t.Name.Space != nsW {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimRight(out.String(), "\n")
}

const blankContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const blankPackageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const blankDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `"><w:body>` +
	`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
	`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
	`</w:sectPr></w:body></w:document>`

const blankDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

const blankStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="` + nsW + `">` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/>` +
	`<w:rPr><w:sz w:val="22"/></w:rPr></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/>` +
	`<w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:pPr><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr>` +
	`<w:rPr><w:b/><w:sz w:val="32"/></w:rPr></w:style>` +
	`</w:styles>`
