package docx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Alignment is a paragraph justification value (w:jc).
type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "both"
)

// Style controls paragraph and run formatting. Zero values inherit from the
// document's paragraph style.
type Style struct {
	Heading bool // applies Heading1
	Bold    bool
	Size    int // points
	Font    string
	Align   Alignment
}

const (
	relFooter         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	contentTypeFooter = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
)

var defaultFooterRef = regexp.MustCompile(`<w:footerReference\b[^>]*w:type="default"[^>]*/>`)

// AppendParagraph adds a paragraph at the end of the body, ahead of the final
// section properties. Newlines in text become line breaks.
func (d *Document) AppendParagraph(text string, s Style) error {
	doc := string(d.parts[partDocument])
	bodyEnd := strings.LastIndex(doc, "</w:body>")
	if bodyEnd < 0 {
		return fmt.Errorf("main document has no body: %w", ErrNotDocument)
	}
	at := bodyEnd
	if start, _, ok := bodySectPr(doc, bodyEnd); ok {
		at = start
	}
	d.parts[partDocument] = []byte(doc[:at] + paragraphXML(text, s) + doc[at:])
	return nil
}

// SetFooter installs a new footer part holding a single paragraph and makes
// it the default footer of the last section, replacing any existing one.
func (d *Document) SetFooter(text string, s Style) error {
	doc := string(d.parts[partDocument])
	bodyEnd := strings.LastIndex(doc, "</w:body>")
	if bodyEnd < 0 {
		return fmt.Errorf("main document has no body: %w", ErrNotDocument)
	}

	n := 1
	for {
		if _, taken := d.parts[fmt.Sprintf("word/footer%d.xml", n)]; !taken {
			break
		}
		n++
	}
	target := fmt.Sprintf("footer%d.xml", n)
	name := "word/" + target

	rels, ok := d.parts[partDocumentRels]
	if !ok {
		rels = []byte(blankDocumentRels)
	}
	relsText := string(rels)
	id := "rIdFooter" + strconv.Itoa(n)
	for strings.Contains(relsText, `Id="`+id+`"`) {
		id += "x"
	}
	rel := `<Relationship Id="` + id + `" Type="` + relFooter + `" Target="` + target + `"/>`
	relsText, err := insertBefore(relsText, "</Relationships>", rel)
	if err != nil {
		return fmt.Errorf("%s: %w", partDocumentRels, err)
	}

	types := string(d.parts[partContentTypes])
	override := `<Override PartName="/` + name + `" ContentType="` + contentTypeFooter + `"/>`
	types, err = insertBefore(types, "</Types>", override)
	if err != nil {
		return fmt.Errorf("%s: %w", partContentTypes, err)
	}

	ref := `<w:footerReference w:type="default" r:id="` + id + `"/>`
	if start, end, ok := bodySectPr(doc, bodyEnd); ok {
		sect := openSectPr(doc[start:end])
		sect = defaultFooterRef.ReplaceAllString(sect, "")
		open := strings.IndexByte(sect, '>') + 1
		sect = sect[:open] + ref + sect[open:]
		doc = doc[:start] + sect + doc[end:]
	} else {
		doc = doc[:bodyEnd] + "<w:sectPr>" + ref + "</w:sectPr>" + doc[bodyEnd:]
	}
	doc = declareRelNamespace(doc)

	d.put(name, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\n"+
		`<w:ftr xmlns:w="`+nsW+`" xmlns:r="`+nsR+`">`+paragraphXML(text, s)+`</w:ftr>`))
	d.put(partDocumentRels, []byte(relsText))
	d.parts[partContentTypes] = []byte(types)
	d.parts[partDocument] = []byte(doc)
	d.footer = name
	return nil
}

// bodySectPr locates the section properties that close the body, if any.
// Section properties nested in a paragraph are not matched.
func bodySectPr(doc string, bodyEnd int) (start, end int, ok bool) {
	start = lastTag(doc[:bodyEnd], "w:sectPr")
	if start < 0 {
		return 0, 0, false
	}
	rest := doc[start:bodyEnd]
	gt := strings.IndexByte(rest, '>')
	if gt < 0 {
		return 0, 0, false
	}
	if rest[gt-1] == '/' {
		end = start + gt + 1
	} else {
		i := strings.Index(rest, "</w:sectPr>")
		if i < 0 {
			return 0, 0, false
		}
		end = start + i + len("</w:sectPr>")
	}
	if strings.TrimSpace(doc[end:bodyEnd]) != "" {
		return 0, 0, false
	}
	return start, end, true
}

// lastTag returns the offset of the last start tag named name, skipping
// longer names that share the prefix.
func lastTag(s, name string) int {
	open := "<" + name
	for end := len(s); ; {
		i := strings.LastIndex(s[:end], open)
		if i < 0 {
			return -1
		}
		if next := i + len(open); next < len(s) && strings.IndexByte(" \t\r\n/>", s[next]) >= 0 {
			return i
		}
		end = i
	}
}

// openSectPr turns <w:sectPr .../> into an element that can hold children.
func openSectPr(sect string) string {
	if strings.HasSuffix(sect, "/>") {
		return strings.TrimSuffix(sect, "/>") + "></w:sectPr>"
	}
	return sect
}

func declareRelNamespace(doc string) string {
	start := lastTag(doc, "w:document")
	if start < 0 {
		return doc
	}
	gt := strings.IndexByte(doc[start:], '>')
	if gt < 0 || strings.Contains(doc[start:start+gt], "xmlns:r=") {
		return doc
	}
	at := start + gt
	if doc[at-1] == '/' {
		at--
	}
	return doc[:at] + ` xmlns:r="` + nsR + `"` + doc[at:]
}

func insertBefore(s, marker, fragment string) (string, error) {
	i := strings.LastIndex(s, marker)
	if i < 0 {
		return "", fmt.Errorf("missing %s", marker)
	}
	return s[:i] + fragment + s[i:], nil
}

func paragraphXML(text string, s Style) string {
	var b bytes.Buffer
	b.WriteString("<w:p>")
	if s.Heading || s.Align != "" {
		b.WriteString("<w:pPr>")
		if s.Heading {
			b.WriteString(`<w:pStyle w:val="Heading1"/>`)
		}
		if s.Align != "" {
			b.WriteString(`<w:jc w:val="` + string(s.Align) + `"/>`)
		}
		b.WriteString("</w:pPr>")
	}

	b.WriteString("<w:r>")
	if s.Font != "" || s.Bold || s.Size > 0 {
		b.WriteString("<w:rPr>")
		if s.Font != "" {
			var font bytes.Buffer
			xml.EscapeText(&font, []byte(s.Font))
			f := font.String()
			fmt.Fprintf(&b, `<w:rFonts w:ascii="%s" w:hAnsi="%s" w:cs="%s"/>`, f, f, f)
		}
		if s.Bold {
			b.WriteString("<w:b/>")
		}
		if s.Size > 0 {
			fmt.Fprintf(&b, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, s.Size*2, s.Size*2)
		}
		b.WriteString("</w:rPr>")
	}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		xml.EscapeText(&b, []byte(line))
		b.WriteString("</w:t>")
	}
	b.WriteString("</w:r></w:p>")
	return b.String()
}
