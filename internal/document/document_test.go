package document

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/apperr"
)

func TestParse_TwoSections(t *testing.T) {
	d, err := Parse("<section=default>Hello World<section=notes>Second")
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "notes"}, d.Sections())
	assert.Equal(t, "default", d.DefaultSection())

	got, err := d.Content("default")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got)

	got, err = d.Content("notes")
	require.NoError(t, err)
	assert.Equal(t, "Second", got)
}

func TestParse_NoMarkers(t *testing.T) {
	for _, raw := range []string{"", "plain text", "<section=>x", "<section=abc1>x", "<section=a b>"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, apperr.ErrDocumentFormat, "input %q", raw)
	}
}

func TestParse_LeadingTextDropped(t *testing.T) {
	d, err := Parse("preamble<section=a>body")
	require.NoError(t, err)
	assert.Equal(t, "<section=a>body", d.Serialize())
}

func TestParse_DuplicateOverwrites(t *testing.T) {
	d, err := Parse("<section=a>one<section=b>two<section=a>three")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, d.Sections())
	got, _ := d.Content("a")
	assert.Equal(t, "three", got)
}

func TestParse_MultilineContent(t *testing.T) {
	raw := "<section=todo>\n- milk\n- eggs\n<section=ideas>\n\n"
	d, err := Parse(raw)
	require.NoError(t, err)
	got, _ := d.Content("todo")
	assert.Equal(t, "\n- milk\n- eggs\n", got)
	assert.Equal(t, raw, d.Serialize())
}

func TestDeleteSection_LastSection(t *testing.T) {
	d, err := Parse("<section=only>text")
	require.NoError(t, err)

	err = d.DeleteSection("only")
	require.ErrorIs(t, err, apperr.ErrLastSection)
	assert.Equal(t, []string{"only"}, d.Sections())

	require.NoError(t, d.AddSection("extra"))
	require.NoError(t, d.DeleteSection("only"))
	assert.Equal(t, []string{"extra"}, d.Sections())

	_, err = d.Content("only")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteSection_Missing(t *testing.T) {
	d := NewDefault()
	require.NoError(t, d.AddSection("two"))
	assert.ErrorIs(t, d.DeleteSection("nope"), apperr.ErrNotFound)
	assert.Equal(t, 2, d.Len())
}

func TestAddSection_Duplicate(t *testing.T) {
	d := NewDefault()
	err := d.AddSection(DefaultSectionName)
	require.ErrorIs(t, err, apperr.ErrDuplicateSection)
	assert.Equal(t, 1, d.Len())
}

func TestAddSection_InvalidName(t *testing.T) {
	d := NewDefault()
	for _, name := range []string{"", "x", "with space", "abc1", "a-b", "<x>"} {
		assert.ErrorIs(t, d.AddSection(name), apperr.ErrInvalidSectionName, "name %q", name)
	}
	assert.Equal(t, []string{DefaultSectionName}, d.Sections())
}

func TestAddSection_AppendsEmpty(t *testing.T) {
	d := NewDefault()
	require.NoError(t, d.AddSection("journal"))
	assert.Equal(t, []string{"default", "journal"}, d.Sections())
	got, err := d.Content("journal")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "<section=default><section=journal>", d.Serialize())
}

func TestSetContent(t *testing.T) {
	d := NewDefault()
	require.NoError(t, d.SetContent("default", "new text"))
	got, _ := d.Content("default")
	assert.Equal(t, "new text", got)

	assert.ErrorIs(t, d.SetContent("missing", "x"), apperr.ErrNotFound)
}

func TestSectionsReturnsCopy(t *testing.T) {
	d := NewDefault()
	names := d.Sections()
	names[0] = "mutated"
	assert.Equal(t, "default", d.DefaultSection())
}

func TestSerialize_PreservesOrder(t *testing.T) {
	// Names chosen so that sorted and insertion order differ.
	d, err := Parse("<section=zeta>z<section=alpha>a<section=mid>m")
	require.NoError(t, err)
	assert.Equal(t, "<section=zeta>z<section=alpha>a<section=mid>m", d.Serialize())
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	letters := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	words := []string{"lorem", "ipsum", "\n", " ", "ünïcødé", "<b>", "section", "=", "42"}

	for iter := 0; iter < 200; iter++ {
		d := NewDefault()
		n := 1 + rng.Intn(6)
		for i := 0; i < n; i++ {
			var name strings.Builder
			for j := 0; j < 1+rng.Intn(8); j++ {
				name.WriteByte(letters[rng.Intn(len(letters))])
			}
			_ = d.AddSection(name.String())
		}
		for _, name := range d.Sections() {
			var body strings.Builder
			for j := 0; j < rng.Intn(10); j++ {
				body.WriteString(words[rng.Intn(len(words))])
			}
			require.NoError(t, d.SetContent(name, body.String()))
		}

		first := d.Serialize()
		parsed, err := Parse(first)
		require.NoError(t, err, fmt.Sprintf("iteration %d", iter))
		assert.Equal(t, d.Sections(), parsed.Sections())
		assert.Equal(t, first, parsed.Serialize())
	}
}

func TestMarker(t *testing.T) {
	assert.Equal(t, "<section=notes>", Marker("notes"))
	assert.True(t, ValidName("Notes"))
	assert.False(t, ValidName("notes2"))
}

func TestSetContent_MarkerSplitsOnReparse(t *testing.T) {
	d := NewDefault()
	text := "before<section=smuggled>after"
	require.NoError(t, d.SetContent("default", text))
	assert.True(t, HasMarker(text))
	assert.False(t, HasMarker("<section=1>"))

	got, err := Parse(d.Serialize())
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "smuggled"}, got.Sections())
}
