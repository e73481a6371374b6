package variants

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryOrder(t *testing.T) {
	require.Equal(t, 5, Default.Len())

	titles := []string{"Minimalist Design", "Bold & Vibrant", "Professional Style", "Playful Theme", "Futuristic Look"}
	for i, title := range titles {
		v, err := Default.Get(i)
		require.NoError(t, err)
		assert.Equal(t, i, v.Index)
		assert.Equal(t, title, v.Title)
		assert.NotEmpty(t, v.Style)
	}
}

func TestGetOutOfRange(t *testing.T) {
	_, err := Default.Get(-1)
	assert.Error(t, err)
	_, err = Default.Get(5)
	assert.Error(t, err)
}

func TestAllReturnsCopy(t *testing.T) {
	all := Default.All()
	all[0].Title = "mutated"

	v, _ := Default.Get(0)
	assert.Equal(t, "Minimalist Design", v.Title)
}

func TestPromptsEmbedBaseAndStyle(t *testing.T) {
	base := "A to-do list app with local storage and dark mode"
	prompts := Default.Prompts(base)
	require.Len(t, prompts, 5)

	for i, p := range prompts {
		v, _ := Default.Get(i)
		assert.Contains(t, p, "Base functionality: "+base)
		assert.Contains(t, p, v.Style)
		assert.Contains(t, p, "Return ONLY the HTML file content without any explanations")

		// only this variant's style is present
		for j, other := range Default.All() {
			if j != i {
				assert.False(t, strings.Contains(p, other.Style), "prompt %d contains style of %d", i, j)
			}
		}
	}
}

func TestPromptMatchesBuildPrompt(t *testing.T) {
	p, err := Default.Prompt("x", 3)
	require.NoError(t, err)
	v, _ := Default.Get(3)
	assert.Equal(t, BuildPrompt("x", v), p)

	_, err = Default.Prompt("x", 9)
	assert.Error(t, err)
}
