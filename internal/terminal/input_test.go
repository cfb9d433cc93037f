package terminal

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {
	in := NewInput(strings.NewReader("first\r\nsecond\nlast"))

	for _, want := range []string{"first", "second", "last"} {
		got, err := in.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := in.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand(`  /Upload a.pdf "my notes.txt" 'x y.docx'`)
	require.True(t, ok)
	assert.Equal(t, "upload", cmd.Name)
	assert.Equal(t, []string{"a.pdf", "my notes.txt", "x y.docx"}, cmd.Args)

	cmd, ok = ParseCommand("/clear")
	require.True(t, ok)
	assert.Equal(t, Command{Name: "clear"}, cmd)

	_, ok = ParseCommand("what is /etc/hosts?")
	assert.False(t, ok)

	_, ok = ParseCommand("/")
	assert.False(t, ok)
}
