package terminal

import (
	"bufio"
	"io"
	"strings"
)

// Input reads user lines from a stream
type Input struct {
	reader *bufio.Reader
}

// NewInput wraps r, typically os.Stdin
func NewInput(r io.Reader) *Input {
	return &Input{reader: bufio.NewReader(r)}
}

// ReadLine reads a line of input from the user.
// A final line without a newline is returned before io.EOF.
func (in *Input) ReadLine() (string, error) {
	line, err := in.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Command is a parsed slash command
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a "/name arg..." line. Arguments may be quoted with
// single or double quotes to keep spaces in paths.
// ok is false for ordinary questions.
func ParseCommand(line string) (cmd Command, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return Command{}, false
	}

	fields := splitArgs(trimmed[1:])
	if len(fields) == 0 {
		return Command{}, false
	}
	cmd = Command{Name: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}
	return cmd, true
}

func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	var quote rune
	inArg := false

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}
