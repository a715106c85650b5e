package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter reads confirmation answers from the terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter constructs a prompter over in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Answer asks for a yes or no. End of input counts as "no".
func (p *Prompter) Answer(question string) (string, error) {
	fmt.Fprintf(p.out, "%s [yes/no]: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return "no", nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
