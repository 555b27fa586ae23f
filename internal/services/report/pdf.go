package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Page geometry for A4 with 10mm margins.
const (
	pdfBodyWidth  = 180.0
	pdfPageBottom = 282.0
	pdfBaseFont   = "Arial"
	pdfBaseSize   = 9.0
)

// RenderPDF converts a markdown report to a PDF document. The title lands
// in the document metadata; the report's own H1 heads the page.
func (s *Service) RenderPDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont(pdfBaseFont, "", pdfBaseSize)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	renderer := &pdfWriter{pdf: pdf, source: source}
	if err := ast.Walk(doc, renderer.walk); err != nil {
		return nil, fmt.Errorf("rendering report PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing report PDF: %w", err)
	}

	s.logger.Debug().Int("pdf_bytes", buf.Len()).Msg("Report PDF rendered")
	return buf.Bytes(), nil
}

// pdfWriter walks the markdown AST and draws it with fpdf.
type pdfWriter struct {
	pdf    *fpdf.Fpdf
	source []byte

	bold      bool
	italic    bool
	listLevel int
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			w.pdf.Write(5, string(node.Text(w.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.applyFont()
	case *ast.CodeSpan:
		return w.codeSpan(node, entering), nil
	case *ast.FencedCodeBlock:
		if entering {
			w.codeBlock(node.Lines())
			return ast.WalkSkipChildren, nil
		}
	case *ast.CodeBlock:
		if entering {
			w.codeBlock(node.Lines())
			return ast.WalkSkipChildren, nil
		}
	case *ast.List:
		w.list(entering)
	case *ast.ListItem:
		if entering {
			w.pdf.Ln(5)
			w.pdf.SetX(15 + float64(w.listLevel)*5)
			w.pdf.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(2)
			w.pdf.Line(15, w.pdf.GetY(), 195, w.pdf.GetY())
			w.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			w.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) applyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(pdfBaseFont, style, pdfBaseSize)
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.pdf.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		}
		w.pdf.SetFont(pdfBaseFont, "B", size)
		return
	}
	w.pdf.Ln(6)
	w.applyFont()
}

func (w *pdfWriter) codeSpan(n *ast.CodeSpan, entering bool) ast.WalkStatus {
	if entering {
		w.pdf.SetFont("Courier", "", pdfBaseSize)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				w.pdf.Write(5, string(textNode.Segment.Value(w.source)))
			}
		}
	} else {
		w.applyFont()
	}
	return ast.WalkSkipChildren
}

func (w *pdfWriter) codeBlock(lines *text.Segments) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Courier", "", pdfBaseSize)
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		w.pdf.MultiCell(0, 5, string(lines.At(i).Value(w.source)), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.applyFont()
	w.pdf.Ln(2)
}

func (w *pdfWriter) list(entering bool) {
	if entering {
		w.listLevel++
		return
	}
	w.listLevel--
	if w.listLevel == 0 {
		w.pdf.Ln(2)
	}
}

func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch section := child.(type) {
		case *extast.TableHeader:
			for row := section.FirstChild(); row != nil; row = row.NextSibling() {
				if tr, ok := row.(*extast.TableRow); ok {
					rows = append(rows, w.tableRow(tr))
				}
			}
		case *extast.TableRow:
			rows = append(rows, w.tableRow(section))
		}
	}
	w.drawTable(rows)
}

func (w *pdfWriter) tableRow(n *extast.TableRow) []string {
	var cells []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			cells = append(cells, string(cell.Text(w.source)))
		}
	}
	return cells
}

func (w *pdfWriter) drawTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	const fontSize = 8.0
	const lineHeight = 4.0
	widths := w.columnWidths(rows, fontSize)

	w.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont(pdfBaseFont, "B", fontSize)
		} else {
			w.pdf.SetFont(pdfBaseFont, "", fontSize)
		}

		maxLines := 1
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			if lines := w.wrapLines(cell, widths[j]-2); len(lines) > maxLines {
				maxLines = len(lines)
			}
		}
		if maxLines > 8 {
			maxLines = 8
		}
		rowHeight := float64(maxLines)*lineHeight + 2

		startY := w.pdf.GetY()
		startX := w.pdf.GetX()
		if startY+rowHeight > pdfPageBottom {
			w.pdf.AddPage()
			startY = w.pdf.GetY()
		}

		x := startX
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			if i == 0 {
				w.pdf.SetFillColor(230, 230, 230)
				w.pdf.Rect(x, startY, widths[j], rowHeight, "FD")
			} else {
				w.pdf.Rect(x, startY, widths[j], rowHeight, "D")
			}
			w.pdf.SetXY(x+1, startY+1)
			w.drawCell(cell, widths[j]-2, lineHeight, maxLines)
			x += widths[j]
		}
		w.pdf.SetXY(startX, startY+rowHeight)
	}
	w.pdf.Ln(3)
	w.applyFont()
}

// columnWidths sizes columns from measured cell text, then clamps and
// scales the set to the printable width.
func (w *pdfWriter) columnWidths(rows [][]string, fontSize float64) []float64 {
	numCols := len(rows[0])
	widths := make([]float64, numCols)

	w.pdf.SetFont(pdfBaseFont, "", fontSize)
	for _, row := range rows {
		for i, cell := range row {
			if i >= numCols {
				break
			}
			if cw := w.pdf.GetStringWidth(cell) + 4; cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	w.pdf.SetFont(pdfBaseFont, "B", fontSize)
	for i, cell := range rows[0] {
		if cw := w.pdf.GetStringWidth(cell) + 4; cw > widths[i] {
			widths[i] = cw
		}
	}
	w.pdf.SetFont(pdfBaseFont, "", fontSize)

	const minWidth = 12.0
	maxWidth := pdfBodyWidth / 3
	total := 0.0
	for i := range widths {
		if widths[i] < minWidth {
			widths[i] = minWidth
		}
		if widths[i] > maxWidth {
			widths[i] = maxWidth
		}
		total += widths[i]
	}

	if total > pdfBodyWidth {
		scale := pdfBodyWidth / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

// wrapLines word-wraps text to the given width using measured string widths.
func (w *pdfWriter) wrapLines(text string, width float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return []string{""}
	}

	spaceWidth := w.pdf.GetStringWidth(" ")
	var lines []string
	current := words[0]
	currentWidth := w.pdf.GetStringWidth(words[0])

	for _, word := range words[1:] {
		wordWidth := w.pdf.GetStringWidth(word)
		if currentWidth+spaceWidth+wordWidth <= width {
			current += " " + word
			currentWidth += spaceWidth + wordWidth
			continue
		}
		lines = append(lines, current)
		current = word
		currentWidth = wordWidth
	}
	return append(lines, current)
}

func (w *pdfWriter) drawCell(text string, width, lineHeight float64, maxLines int) {
	lines := w.wrapLines(text, width)
	for i := 0; i < len(lines) && i < maxLines; i++ {
		line := lines[i]
		if i == maxLines-1 && len(lines) > maxLines {
			for w.pdf.GetStringWidth(line+"...") > width && len(line) > 3 {
				line = line[:len(line)-1]
			}
			line += "..."
		}
		w.pdf.CellFormat(width, lineHeight, line, "", 2, "L", false, 0, "")
	}
}
