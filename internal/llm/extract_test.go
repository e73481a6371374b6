package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDocument(t *testing.T) {
	doc := "<!DOCTYPE html>\n<html>\n  <body>\n    <h1>Todo</h1>\n  </body>\n</html>"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare document", doc, doc},
		{"surrounding whitespace", "\n\n" + doc + "\n ", doc},
		{"html fence", "```html\n" + doc + "\n```", doc},
		{"plain fence", "```\n" + doc + "\n```\n", doc},
		{"tilde fence", "~~~html\n" + doc + "\n~~~", doc},
		{"unterminated fence", "```html\n" + doc, doc},
		{"fence followed by prose", "```html\n" + doc + "\n```\n\nThis page renders a todo list.", doc},
		{"prose first is left alone", "Here you go:\n```html\n" + doc + "\n```", "Here you go:\n```html\n" + doc + "\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDocument(tt.in))
		})
	}
}
