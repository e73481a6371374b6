package variants

import (
	"fmt"
	"strings"
)

// Variant is one style personality applied to a base prompt
type Variant struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Style string `json:"style"`
}

// Registry is the fixed, ordered set of variants shared by the server and the client
type Registry struct {
	variants []Variant
}

// Default is the registry used by the API and the quintet CLI
var Default = New(
	Variant{Title: "Minimalist Design", Style: "Minimalist - Focus on clean, simple design with plenty of white space and subtle animations"},
	Variant{Title: "Bold & Vibrant", Style: "Bold - Use vibrant colors, large typography, and dramatic effects"},
	Variant{Title: "Professional Style", Style: "Professional - Clean corporate style with neutral colors and structured layouts"},
	Variant{Title: "Playful Theme", Style: "Playful - Fun, colorful design with whimsical elements and bouncy animations"},
	Variant{Title: "Futuristic Look", Style: "Futuristic - Sleek, modern design with neon accents and high-tech aesthetics"},
)

// New builds a registry, assigning indexes in argument order
func New(vs ...Variant) *Registry {
	out := make([]Variant, len(vs))
	for i, v := range vs {
		v.Index = i
		out[i] = v
	}
	return &Registry{variants: out}
}

// Len returns the number of variants
func (r *Registry) Len() int {
	return len(r.variants)
}

// Get returns the variant at index i
func (r *Registry) Get(i int) (Variant, error) {
	if i < 0 || i >= len(r.variants) {
		return Variant{}, fmt.Errorf("variant index %d out of range [0,%d)", i, len(r.variants))
	}
	return r.variants[i], nil
}

// All returns a copy of the variants in order
func (r *Registry) All() []Variant {
	out := make([]Variant, len(r.variants))
	copy(out, r.variants)
	return out
}

// Prompt builds the full upstream instruction for variant i
func (r *Registry) Prompt(base string, i int) (string, error) {
	v, err := r.Get(i)
	if err != nil {
		return "", err
	}
	return BuildPrompt(base, v), nil
}

// Prompts builds one instruction per variant, index-aligned
func (r *Registry) Prompts(base string) []string {
	out := make([]string, len(r.variants))
	for i, v := range r.variants {
		out[i] = BuildPrompt(base, v)
	}
	return out
}

// BuildPrompt embeds the base prompt and style into the fixed technical brief
func BuildPrompt(base string, v Variant) string {
	var b strings.Builder
	b.WriteString("Create a well-structured, modern web application:\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString("1. Base functionality: " + base + "\n")
	b.WriteString("2. Design personality: " + v.Style + "\n\n")
	b.WriteString(technicalRequirements)
	return b.String()
}

const technicalRequirements = `Technical Requirements:
- Create a single HTML file with clean, indented code structure
- Organize the code in this order:
  1. <!DOCTYPE html> and meta tags
  2. <title> and other head elements
  3. Framework CSS and JS imports
  4. Custom CSS styles in a <style> tag
  5. HTML body with semantic markup
  6. JavaScript in a <script> tag at the end of body
- Use proper HTML5 semantic elements
- Include clear spacing between sections
- Add descriptive comments for each major component
- Ensure responsive design with mobile-first approach
- Use modern ES6+ JavaScript features
- Keep the code modular and well-organized
- Ensure all interactive elements have proper styling states (hover, active, etc.)
- Implement the framework-specific best practices and components

Additional Notes:
- The code must be complete and immediately runnable
- All custom CSS and JavaScript should be included inline
- Code must work properly when rendered in an iframe
- Focus on clean, maintainable code structure
- Return ONLY the HTML file content without any explanations

Format the code with proper indentation and spacing for readability.`
