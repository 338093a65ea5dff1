package assembler

import (
	"fmt"
	"strings"

	"github.com/onegreenvn/bizdoc-services-backend/internal/services/converter"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// 16:9 slide size in EMU
const (
	slideWidth  = 12192000
	slideHeight = 6858000
	emuPerInch  = 914400
)

// PPTXAssembler writes PresentationML directly: a themed cover slide, one
// slide per "## " section and a themed closing slide.
type PPTXAssembler struct{}

func NewPPTXAssembler() *PPTXAssembler { return &PPTXAssembler{} }

func (a *PPTXAssembler) Format() Format { return FormatPPTX }

func (a *PPTXAssembler) ContentType() string { return pptxContentType }

func (a *PPTXAssembler) Extension() string { return "pptx" }

func (a *PPTXAssembler) Assemble(doc Document, theme Theme) ([]byte, error) {
	slides := []string{coverSlideXML(doc, theme)}
	for _, s := range converter.SplitSlides(doc.Content) {
		if s.Title == "" {
			s.Title = doc.displayTitle()
		}
		slides = append(slides, contentSlideXML(s, theme))
	}
	slides = append(slides, closingSlideXML(doc, theme))

	pkg := newPackage()
	pkg.add("[Content_Types].xml", pptxContentTypesXML(len(slides)))
	pkg.add("_rels/.rels", rootRelsXML("ppt/presentation.xml"))
	pkg.add("docProps/core.xml", corePropsXML(doc.displayTitle(), doc.BusinessName, doc.timestamp()))
	pkg.add("docProps/app.xml", appPropsXML("BizDoc"))
	pkg.add("ppt/presentation.xml", presentationXML(len(slides)))
	pkg.add("ppt/_rels/presentation.xml.rels", presentationRelsXML(len(slides)))
	pkg.add("ppt/presProps.xml", presPropsXML)
	pkg.add("ppt/viewProps.xml", viewPropsXML)
	pkg.add("ppt/tableStyles.xml", tableStylesXML)
	pkg.add("ppt/theme/theme1.xml", pptxThemeXML(theme))
	pkg.add("ppt/slideMasters/slideMaster1.xml", slideMasterXML)
	pkg.add("ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML)
	pkg.add("ppt/slideLayouts/slideLayout1.xml", slideLayoutXML)
	pkg.add("ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML)
	for i, s := range slides {
		pkg.add(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), s)
		pkg.add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), slideRelsXML)
	}
	return pkg.bytes()
}

// slideBuilder accumulates shapes for one slide's spTree
type slideBuilder struct {
	shapes strings.Builder
	nextID int
}

func newSlideBuilder() *slideBuilder {
	return &slideBuilder{nextID: 2}
}

type textPara struct {
	text   string
	size   float64
	color  string
	bold   bool
	italic bool
	align  string
	bullet bool
	font   string
}

// rect adds a filled rectangle with no text
func (s *slideBuilder) rect(x, y, cx, cy int, fill string) {
	id := s.nextID
	s.nextID++
	fmt.Fprintf(&s.shapes, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Shape %d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`, id, id)
	fmt.Fprintf(&s.shapes, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom>`, x, y, cx, cy)
	fmt.Fprintf(&s.shapes, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:ln><a:noFill/></a:ln></p:spPr></p:sp>`, fill)
}

// textBox adds a text box; anchor is t, ctr or b
func (s *slideBuilder) textBox(x, y, cx, cy int, anchor string, paras []textPara) {
	id := s.nextID
	s.nextID++
	b := &s.shapes
	fmt.Fprintf(b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, id, id)
	fmt.Fprintf(b, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`, x, y, cx, cy)
	fmt.Fprintf(b, `<p:txBody><a:bodyPr wrap="square" lIns="91440" tIns="45720" rIns="91440" bIns="45720" anchor="%s"><a:normAutofit/></a:bodyPr><a:lstStyle/>`, anchor)
	if len(paras) == 0 {
		b.WriteString(`<a:p><a:endParaRPr lang="en-US"/></a:p>`)
	}
	for _, p := range paras {
		writeTextPara(b, p)
	}
	b.WriteString(`</p:txBody></p:sp>`)
}

func writeTextPara(b *strings.Builder, p textPara) {
	b.WriteString(`<a:p>`)
	align := p.align
	if align == "" {
		align = "l"
	}
	if p.bullet {
		fmt.Fprintf(b, `<a:pPr marL="342900" indent="-285750" algn="%s"><a:spcBef><a:spcPts val="600"/></a:spcBef>`+
			`<a:buClr><a:srgbClr val="%s"/></a:buClr><a:buFont typeface="Arial"/><a:buChar char="•"/></a:pPr>`, align, p.color)
	} else {
		fmt.Fprintf(b, `<a:pPr marL="0" indent="0" algn="%s"><a:spcBef><a:spcPts val="600"/></a:spcBef><a:buNone/></a:pPr>`, align)
	}
	for _, span := range converter.SplitEmphasis(p.text) {
		if span.Text == "" {
			continue
		}
		writeTextRun(b, p, p.bold || span.Bold, span.Text)
	}
	fmt.Fprintf(b, `<a:endParaRPr lang="en-US" sz="%d"/></a:p>`, hundredthPoints(p.size))
}

func writeTextRun(b *strings.Builder, p textPara, bold bool, text string) {
	fmt.Fprintf(b, `<a:r><a:rPr lang="en-US" sz="%d" b="%d" i="%d" dirty="0">`, hundredthPoints(p.size), boolAttr(bold), boolAttr(p.italic))
	fmt.Fprintf(b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, p.color)
	if p.font != "" {
		fmt.Fprintf(b, `<a:latin typeface="%s"/>`, esc(p.font))
	}
	b.WriteString(`</a:rPr><a:t>` + esc(text) + `</a:t></a:r>`)
}

func boolAttr(v bool) int {
	if v {
		return 1
	}
	return 0
}

func (s *slideBuilder) xml(background string) string {
	var bg string
	if background != "" {
		bg = fmt.Sprintf(`<p:bg><p:bgPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`, background)
	}
	return xmlHeader +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld>` + bg + `<p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>` +
		s.shapes.String() +
		`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}

func coverSlideXML(doc Document, t Theme) string {
	s := newSlideBuilder()
	margin := emuPerInch
	width := slideWidth - 2*margin
	s.rect(0, slideHeight-emuPerInch/2, slideWidth, emuPerInch/2, t.AccentColor)
	s.textBox(margin, emuPerInch*3/2, width, emuPerInch*3/2, "b", []textPara{
		{text: doc.displayTitle(), size: 40, color: "FFFFFF", bold: true, align: "ctr", font: t.FontFamily},
	})
	s.textBox(margin, emuPerInch*3+emuPerInch/4, width, emuPerInch*3/2, "t", []textPara{
		{text: doc.BusinessName, size: 24, color: "FFFFFF", align: "ctr", font: t.FontFamily},
		{text: doc.DocumentType, size: 18, color: t.BackgroundTint, italic: true, align: "ctr", font: t.FontFamily},
		{text: doc.dateLabel(), size: 14, color: t.BackgroundTint, align: "ctr", font: t.FontFamily},
	})
	return s.xml(t.PrimaryColor)
}

func contentSlideXML(slide converter.Slide, t Theme) string {
	s := newSlideBuilder()
	margin := emuPerInch / 2
	width := slideWidth - 2*margin
	barHeight := emuPerInch * 5 / 4

	s.rect(0, 0, slideWidth, barHeight, t.PrimaryColor)
	s.rect(0, barHeight, slideWidth, emuPerInch/16, t.AccentColor)
	s.textBox(margin, 0, width, barHeight, "ctr", []textPara{
		{text: slide.Title, size: 28, color: "FFFFFF", bold: true, font: t.FontFamily},
	})

	paras := make([]textPara, 0, len(slide.Body))
	for _, line := range slide.Body {
		p := textPara{text: line.Text, size: 18, color: t.TextColor, font: t.FontFamily}
		switch line.Kind {
		case converter.SlideBullet:
			p.bullet = true
			p.color = t.TextColor
		case converter.SlideSubheading:
			p.bold = true
			p.size = 20
			p.color = t.SecondaryColor
		}
		paras = append(paras, p)
	}
	top := barHeight + emuPerInch/3
	s.textBox(margin, top, width, slideHeight-top-emuPerInch/3, "t", paras)
	return s.xml("FFFFFF")
}

func closingSlideXML(doc Document, t Theme) string {
	s := newSlideBuilder()
	margin := emuPerInch
	width := slideWidth - 2*margin
	s.rect(0, 0, slideWidth, emuPerInch/2, t.AccentColor)
	s.textBox(margin, emuPerInch*2, width, emuPerInch*3/2, "ctr", []textPara{
		{text: "Thank You", size: 44, color: "FFFFFF", bold: true, align: "ctr", font: t.FontFamily},
	})
	s.textBox(margin, emuPerInch*7/2, width, emuPerInch*3/2, "t", []textPara{
		{text: doc.BusinessName, size: 22, color: "FFFFFF", align: "ctr", font: t.FontFamily},
		{text: "Generated on " + doc.dateLabel(), size: 14, color: t.BackgroundTint, italic: true, align: "ctr", font: t.FontFamily},
	})
	return s.xml(t.PrimaryColor)
}

func pptxContentTypesXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/presProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/viewProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.viewProps+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/tableStyles.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.tableStyles+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

// Relationship ids: rId1 is the master, slides take rId2..rId(n+1), the
// remaining parts follow.
func presentationXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" saveSubsetFonts="1">`)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := 0; i < slides; i++ {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, slideWidth, slideHeight)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func presentationRelsXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+1, i)
	}
	next := slides + 2
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/presProps" Target="presProps.xml"/>`, next)
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/viewProps" Target="viewProps.xml"/>`, next+1)
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/>`, next+2)
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/tableStyles" Target="tableStyles.xml"/>`, next+3)
	b.WriteString(`</Relationships>`)
	return b.String()
}

const presPropsXML = xmlHeader +
	`<p:presentationPr xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`

const viewPropsXML = xmlHeader +
	`<p:viewPr xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
	`<p:normalViewPr><p:restoredLeft sz="15620"/><p:restoredTop sz="94660"/></p:normalViewPr>` +
	`<p:gridSpacing cx="76200" cy="76200"/></p:viewPr>`

const tableStylesXML = xmlHeader +
	`<a:tblStyleLst xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>`

const emptySpTree = `<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr></p:spTree>`

const slideMasterXML = xmlHeader +
	`<p:sldMaster xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
	`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg>` + emptySpTree + `</p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" ` +
	`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const slideMasterRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayoutXML = xmlHeader +
	`<p:sldLayout xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
	`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" type="blank" preserve="1">` +
	`<p:cSld name="Blank">` + emptySpTree + `</p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const slideLayoutRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

const slideRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`</Relationships>`

func pptxThemeXML(t Theme) string {
	font := esc(t.FontFamily)
	solid := func(c string) string { return `<a:solidFill><a:srgbClr val="` + c + `"/></a:solidFill>` }
	line := func(w int) string {
		return fmt.Sprintf(`<a:ln w="%d" cap="flat" cmpd="sng" algn="ctr"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:prstDash val="solid"/></a:ln>`, w)
	}
	return xmlHeader +
		`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="BizDoc">` +
		`<a:themeElements>` +
		`<a:clrScheme name="BizDoc">` +
		`<a:dk1><a:srgbClr val="` + t.TextColor + `"/></a:dk1>` +
		`<a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>` +
		`<a:dk2><a:srgbClr val="` + t.PrimaryColor + `"/></a:dk2>` +
		`<a:lt2><a:srgbClr val="` + t.BackgroundTint + `"/></a:lt2>` +
		`<a:accent1><a:srgbClr val="` + t.PrimaryColor + `"/></a:accent1>` +
		`<a:accent2><a:srgbClr val="` + t.SecondaryColor + `"/></a:accent2>` +
		`<a:accent3><a:srgbClr val="` + t.AccentColor + `"/></a:accent3>` +
		`<a:accent4><a:srgbClr val="` + t.MutedColor + `"/></a:accent4>` +
		`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5>` +
		`<a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
		`<a:hlink><a:srgbClr val="0563C1"/></a:hlink>` +
		`<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
		`</a:clrScheme>` +
		`<a:fontScheme name="BizDoc">` +
		`<a:majorFont><a:latin typeface="` + font + `"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
		`<a:minorFont><a:latin typeface="` + font + `"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
		`</a:fontScheme>` +
		`<a:fmtScheme name="BizDoc">` +
		`<a:fillStyleLst>` + `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` + solid(t.BackgroundTint) + solid(t.PrimaryColor) + `</a:fillStyleLst>` +
		`<a:lnStyleLst>` + line(6350) + line(12700) + line(19050) + `</a:lnStyleLst>` +
		`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
		`<a:bgFillStyleLst>` + `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` + solid(t.BackgroundTint) + solid(t.PrimaryColor) + `</a:bgFillStyleLst>` +
		`</a:fmtScheme>` +
		`</a:themeElements>` +
		`</a:theme>`
}
