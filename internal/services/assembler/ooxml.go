package assembler

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// ooxmlPackage collects the parts of an Office Open XML zip container
type ooxmlPackage struct {
	buf bytes.Buffer
	zw  *zip.Writer
	err error
}

func newPackage() *ooxmlPackage {
	p := &ooxmlPackage{}
	p.zw = zip.NewWriter(&p.buf)
	return p
}

// add writes one part. The first error is kept and later calls are no-ops.
func (p *ooxmlPackage) add(name, content string) {
	if p.err != nil {
		return
	}
	w, err := p.zw.Create(name)
	if err != nil {
		p.err = fmt.Errorf("create part %s: %w", name, err)
		return
	}
	if _, err := w.Write([]byte(content)); err != nil {
		p.err = fmt.Errorf("write part %s: %w", name, err)
	}
}

func (p *ooxmlPackage) bytes() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.zw.Close(); err != nil {
		return nil, fmt.Errorf("close package: %w", err)
	}
	return p.buf.Bytes(), nil
}

// esc escapes text for XML character data and attribute values. Characters
// XML 1.0 cannot carry are replaced with U+FFFD.
func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func corePropsXML(title, creator string, created time.Time) string {
	stamp := created.UTC().Format(time.RFC3339)
	return xmlHeader +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + esc(title) + `</dc:title>` +
		`<dc:creator>` + esc(creator) + `</dc:creator>` +
		`<cp:lastModifiedBy>BizDoc</cp:lastModifiedBy>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:modified>` +
		`</cp:coreProperties>`
}

func appPropsXML(application string) string {
	return xmlHeader +
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" ` +
		`xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">` +
		`<Application>` + esc(application) + `</Application>` +
		`</Properties>`
}

const rootRelsTemplate = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="%s"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>` +
	`</Relationships>`

func rootRelsXML(mainPart string) string {
	return fmt.Sprintf(rootRelsTemplate, mainPart)
}
