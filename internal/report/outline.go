package report

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is a heading of a rendered report.
type Section struct {
	Level int
	Title string
}

// Outline lists the headings of a Markdown document in order.
func Outline(md []byte) ([]Section, error) {
	reader := text.NewReader(md)
	doc := markdown.Parser().Parse(reader)

	var sections []Section
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := n.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}

		var title bytes.Buffer
		for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				_, _ = title.Write(t.Segment.Value(reader.Source()))
			}
		}
		sections = append(sections, Section{Level: heading.Level, Title: strings.TrimSpace(title.String())})
		return ast.WalkSkipChildren, nil
	})
	return sections, err
}
