// Package console provides the interactive prompts for calibration and
// measurement session inputs.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Console reads session inputs from an injectable reader and writes
// prompts to an injectable writer, so prompt/retry behavior is testable
// without real interactive input.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New creates a Console over the given reader and writer.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Stdio creates a Console bound to stdin/stdout.
func Stdio() *Console {
	return New(os.Stdin, os.Stdout)
}

// Printf writes formatted text to the console output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Line prompts once and returns the entered line with surrounding
// whitespace trimmed. The only error is the input stream ending.
func (c *Console) Line(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	return strings.TrimSpace(c.scanner.Text()), nil
}

// PositiveFloat prompts until the user supplies a strictly positive
// numeric value. Non-numeric and non-positive input produce a corrective
// message and a re-prompt; the only error is the input stream ending.
func (c *Console) PositiveFloat(prompt string) (float64, error) {
	for {
		fmt.Fprint(c.out, prompt)

		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(c.scanner.Text()), 64)
		if err != nil {
			fmt.Fprintln(c.out, "Invalid input. Please enter a number.")
			continue
		}
		if value <= 0 {
			fmt.Fprintln(c.out, "Please enter a positive value.")
			continue
		}

		return value, nil
	}
}
