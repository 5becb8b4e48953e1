package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse_WrongPrefix(t *testing.T) {
	_, ok := Parse("!roll --import {}", "tac")
	assert.False(t, ok)
}

func TestParse_PrefixMustBeWholeWord(t *testing.T) {
	_, ok := Parse("!tactics --help", "tac")
	assert.False(t, ok)
}

func TestParse_Empty(t *testing.T) {
	_, ok := Parse("", "tac")
	assert.False(t, ok)
}

func TestParse_BarePrefix(t *testing.T) {
	inv, ok := Parse("!tac", "tac")
	require.True(t, ok)
	assert.Equal(t, "", inv.Subcommand)
	assert.Equal(t, "", inv.Payload)
}

func TestParse_Help(t *testing.T) {
	inv, ok := Parse("!tac --help", "tac")
	require.True(t, ok)
	assert.Equal(t, "help", inv.Subcommand)
	assert.Equal(t, "", inv.Payload)
}

func TestParse_ImportWithPayload(t *testing.T) {
	inv, ok := Parse(`!tac --import {"scenes":[]}`, "tac")
	require.True(t, ok)
	assert.Equal(t, "import", inv.Subcommand)
	assert.Equal(t, `{"scenes":[]}`, inv.Payload)
}

func TestParse_ExtraWhitespace(t *testing.T) {
	inv, ok := Parse("  !tac   --import    {}  ", "tac")
	require.True(t, ok)
	assert.Equal(t, "import", inv.Subcommand)
	assert.Equal(t, "{}", inv.Payload)
}

func TestParse_PayloadContainingFlagIsNotResplit(t *testing.T) {
	line := `!tac --import {"notes":[{"name":"a --import b","content":"--help"}]}`
	inv, ok := Parse(line, "tac")
	require.True(t, ok)
	assert.Equal(t, "import", inv.Subcommand)
	assert.Equal(t, `{"notes":[{"name":"a --import b","content":"--help"}]}`, inv.Payload)
}

func TestParse_NoFlag(t *testing.T) {
	inv, ok := Parse("!tac import", "tac")
	require.True(t, ok)
	assert.Equal(t, "", inv.Subcommand)
	assert.Equal(t, "import", inv.Payload)
}

func TestParse_PrefixIsCaseSensitive(t *testing.T) {
	for _, line := range []string{"!TAC --dump", "!Tac --dump", "!tAC"} {
		_, ok := Parse(line, "tac")
		assert.False(t, ok, line)
	}
}

func TestPropertyParsePayloadIsVerbatim(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sub := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "sub")
		payload := rapid.StringMatching(`[{}"a-z:, \-]{0,40}`).Draw(t, "payload")
		payload = strings.TrimSpace(payload)

		line := "!tac --" + sub
		if payload != "" {
			line += " " + payload
		}
		inv, ok := Parse(line, "tac")
		if !ok {
			t.Fatalf("line %q was not recognised", line)
		}
		if inv.Subcommand != sub {
			t.Fatalf("subcommand = %q, want %q", inv.Subcommand, sub)
		}
		if inv.Payload != payload {
			t.Fatalf("payload = %q, want %q", inv.Payload, payload)
		}
	})
}
