package emitter

import (
	"strings"

	"github.com/roach88/bindgen/internal/docs"
	"github.com/roach88/bindgen/internal/ir"
)

// typeDoc renders the documentation of a type-like declaration.
func typeDoc(d docs.APIDetails) []string {
	var b commentBuilder
	b.paragraph(d.Description)
	b.paragraph(d.Remarks)
	if d.HelpLink != "" {
		b.paragraph("See: " + d.HelpLink)
	}
	return b.lines
}

// callableDoc renders the documentation of a method or delegate.
// Parameter docs follow declaration order.
func callableDoc(d docs.APIDetails, params []ir.Param) []string {
	var b commentBuilder
	b.paragraph(d.Description)
	b.paragraph(d.Remarks)

	var items []string
	for _, p := range params {
		if text, ok := d.Parameters[p.Name]; ok {
			items = append(items, p.Name+": "+singleLine(text))
		}
	}
	if len(items) > 0 {
		b.separate()
		b.line("Parameters:")
		for _, item := range items {
			b.line("  - " + item)
		}
	}

	if d.ReturnValue != "" {
		b.paragraph("Returns: " + d.ReturnValue)
	}
	if d.HelpLink != "" {
		b.paragraph("See: " + d.HelpLink)
	}
	return b.lines
}

// commentLines renders free text as comment lines.
func commentLines(text string) []string {
	var b commentBuilder
	b.paragraph(text)
	return b.lines
}

type commentBuilder struct {
	lines []string
}

func (b *commentBuilder) line(s string) {
	s = strings.TrimRight(s, " \t")
	if s == "" {
		b.lines = append(b.lines, "//")
		return
	}
	b.lines = append(b.lines, "// "+s)
}

// separate starts a new paragraph if anything was written.
func (b *commentBuilder) separate() {
	if len(b.lines) > 0 {
		b.lines = append(b.lines, "//")
	}
}

func (b *commentBuilder) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.separate()
	for _, l := range strings.Split(text, "\n") {
		b.line(l)
	}
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
