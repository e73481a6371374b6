package llm

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ExtractDocument returns the generated document without a surrounding
// Markdown code fence. Output that does not open with a fence is returned
// trimmed but otherwise untouched.
func ExtractDocument(output string) string {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "```") && !strings.HasPrefix(trimmed, "~~~") {
		return trimmed
	}

	src := []byte(trimmed)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var (
		buf   bytes.Buffer
		found bool
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		found = true
		return ast.WalkStop, nil
	})

	if !found {
		return trimmed
	}
	return strings.TrimSpace(buf.String())
}
