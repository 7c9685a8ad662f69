package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const workersPrompt = "Enter number of threads: "

// errNoWorkers is returned when the input ends before a valid worker count.
var errNoWorkers = errors.New("no number of workers entered")

// promptWorkers asks for the number of workers until a positive integer is
// entered.
func promptWorkers(in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, workersPrompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, fmt.Errorf("could not read number of workers: %w", err)
			}
			return 0, errNoWorkers
		}

		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || n < 1 {
			fmt.Fprintln(out, "please enter a positive integer")
			continue
		}
		return n, nil
	}
}
