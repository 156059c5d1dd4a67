package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// ConvertMarkdownToPDF converts markdown content to a PDF byte slice
func (s *Service) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	s.logger.Debug().
		Int("markdown_len", len(markdown)).
		Str("title", title).
		Msg("Converting markdown to PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("scimdash", true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	renderer := &pdfRenderer{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		source: source,
		logger: s.logger,
		font:   "Arial",
		size:   9,
	}

	if err := renderer.render(doc); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF")
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("PDF generated successfully")
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string // UTF-8 to cp1252 for the core fonts
	source    []byte
	logger    arbor.ILogger
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) render(node ast.Node) error {
	if err := ast.Walk(node, r.walk); err != nil {
		return err
	}
	return r.pdf.Error()
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *pdfRenderer) write(h float64, s string) {
	r.pdf.Write(h, r.tr(s))
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			t := n.(*ast.Text)
			r.write(5, string(t.Segment.Value(r.source)))
			if t.SoftLineBreak() {
				r.write(5, " ")
			}
		}
	case ast.KindEmphasis:
		e := n.(*ast.Emphasis)
		if e.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindCodeSpan:
		return r.handleCodeSpan(n.(*ast.CodeSpan), entering)
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			r.renderCodeBlock(n.Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(5)
			}
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5.0)
			r.write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		return r.handleTable(n.(*extast.Table), entering)
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleHeading(n *ast.Heading, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.Ln(4)
		size := 10.0
		switch n.Level {
		case 1:
			size = 16
		case 2:
			size = 12
		case 3:
			size = 10
		}
		r.pdf.SetFont(r.font, "B", size)
	} else {
		r.pdf.Ln(7)
		r.updateFont()
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleCodeSpan(n *ast.CodeSpan, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.SetFont("Courier", "", 9)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				r.write(5, string(textNode.Segment.Value(r.source)))
			}
		}
		r.updateFont()
	}
	return ast.WalkSkipChildren, nil
}

func (r *pdfRenderer) renderCodeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", 8)
	r.pdf.SetFillColor(245, 245, 245)

	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, 4, r.tr(string(line.Value(r.source))), "", "L", true)
	}

	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(2)
}

func (r *pdfRenderer) handleTable(n *extast.Table, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch row := child.(type) {
		case *extast.TableHeader:
			rows = append(rows, r.extractCells(row))
		case *extast.TableRow:
			rows = append(rows, r.extractCells(row))
		}
	}

	r.renderTable(rows)
	return ast.WalkSkipChildren, nil
}

func (r *pdfRenderer) extractCells(row ast.Node) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*extast.TableCell); ok {
			cells = append(cells, r.tr(nodeText(c, r.source)))
		}
	}
	return cells
}

// nodeText concatenates the text segments below n
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func (r *pdfRenderer) renderTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	r.pdf.Ln(2)

	pageWidth := 190.0
	numCols := len(rows[0])
	fontSize := 8.0
	lineHeight := 4.0

	colWidths := r.calculateTableColumnWidths(rows, numCols, pageWidth, fontSize)

	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.pdf.SetFont(r.font, style, fontSize)

		maxLines := 1
		for j, c := range row {
			if j < numCols {
				if lines := r.linesNeeded(c, colWidths[j]-2); lines > maxLines {
					maxLines = lines
				}
			}
		}
		if maxLines > 8 {
			maxLines = 8
		}

		rowHeight := float64(maxLines)*lineHeight + 2
		_, pageHeight := r.pdf.GetPageSize()
		_, _, _, bottom := r.pdf.GetMargins()
		startX := r.pdf.GetX()
		startY := r.pdf.GetY()
		if startY+rowHeight > pageHeight-bottom {
			r.pdf.AddPage()
			startY = r.pdf.GetY()
		}

		x := startX
		for j, c := range row {
			if j >= numCols {
				break
			}

			fill := i == 0 || r.setStatusFill(c)
			if i == 0 {
				r.pdf.SetFillColor(230, 230, 230)
			}
			if fill {
				r.pdf.Rect(x, startY, colWidths[j], rowHeight, "FD")
			} else {
				r.pdf.Rect(x, startY, colWidths[j], rowHeight, "D")
			}

			r.pdf.SetXY(x+1, startY+1)
			r.renderCellText(c, colWidths[j]-2, lineHeight, maxLines)
			x += colWidths[j]
		}

		r.pdf.SetXY(startX, startY+rowHeight)
	}

	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(3)
	r.updateFont()
}

// setStatusFill tints outcome cells and reports whether a fill was set
func (r *pdfRenderer) setStatusFill(value string) bool {
	switch value {
	case "Failed", "Failure", "Unparsed":
		r.pdf.SetFillColor(255, 199, 206)
	case "Success":
		r.pdf.SetFillColor(198, 239, 206)
	case "Skipped":
		r.pdf.SetFillColor(255, 235, 156)
	default:
		return false
	}
	return true
}

// calculateTableColumnWidths sizes columns from measured content, then scales them to the page
func (r *pdfRenderer) calculateTableColumnWidths(rows [][]string, numCols int, pageWidth float64, fontSize float64) []float64 {
	colWidths := make([]float64, numCols)

	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.pdf.SetFont(r.font, style, fontSize)
		for j, c := range row {
			if j < numCols {
				if w := r.pdf.GetStringWidth(c) + 4; w > colWidths[j] {
					colWidths[j] = w
				}
			}
		}
	}
	r.pdf.SetFont(r.font, "", fontSize)

	minWidth := 12.0
	maxWidth := pageWidth / 2.0
	if numCols > 2 {
		maxWidth = pageWidth / 3.0
	}

	total := 0.0
	for i := range colWidths {
		if colWidths[i] < minWidth {
			colWidths[i] = minWidth
		}
		if colWidths[i] > maxWidth {
			colWidths[i] = maxWidth
		}
		total += colWidths[i]
	}

	if total > pageWidth {
		scale := pageWidth / total
		for i := range colWidths {
			colWidths[i] *= scale
		}
	} else if total < pageWidth*0.9 {
		scale := (pageWidth * 0.95) / total
		if scale > 1.5 {
			scale = 1.5
		}
		for i := range colWidths {
			colWidths[i] *= scale
		}
	}

	return colWidths
}

func (r *pdfRenderer) wrap(s string, width float64) []string {
	words := splitIntoWords(s)
	var lines []string
	current := ""
	currentWidth := 0.0
	spaceWidth := r.pdf.GetStringWidth(" ")

	for _, word := range words {
		wordWidth := r.pdf.GetStringWidth(word)
		switch {
		case current == "":
			current = word
			currentWidth = wordWidth
		case currentWidth+spaceWidth+wordWidth <= width:
			current += " " + word
			currentWidth += spaceWidth + wordWidth
		default:
			lines = append(lines, current)
			current = word
			currentWidth = wordWidth
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func (r *pdfRenderer) linesNeeded(s string, width float64) int {
	if s == "" || width <= 0 {
		return 1
	}
	if n := len(r.wrap(s, width)); n > 0 {
		return n
	}
	return 1
}

// renderCellText writes wrapped text inside a cell, truncating with an ellipsis past maxLines
func (r *pdfRenderer) renderCellText(s string, width, lineHeight float64, maxLines int) {
	lines := r.wrap(s, width)
	for i := 0; i < len(lines) && i < maxLines; i++ {
		line := lines[i]
		if i == maxLines-1 && len(lines) > maxLines {
			for r.pdf.GetStringWidth(line+"...") > width && len(line) > 3 {
				line = line[:len(line)-1]
			}
			line += "..."
		}
		r.pdf.CellFormat(width, lineHeight, line, "", 2, "L", false, 0, "")
	}
}

func splitIntoWords(s string) []string {
	var words []string
	var current []rune
	for _, c := range s {
		if c == ' ' || c == '\t' || c == '\n' {
			if len(current) > 0 {
				words = append(words, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, c)
	}
	if len(current) > 0 {
		words = append(words, string(current))
	}
	return words
}
