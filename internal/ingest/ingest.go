// Package ingest loads the domain list a scan run works through, either from
// a JSON input record or from a plain domain-per-line file.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Input is the batch run request: the domains to scan and the concurrency
// ceiling for the run.
type Input struct {
	Domains        []string `json:"domains"`
	MaxConcurrency int      `json:"maxConcurrency"`
}

// LoadFile reads an input file, accepting either a JSON input record or a
// domain-per-line list. The format is sniffed from the first non-space byte.
func LoadFile(path string) (Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return Input{}, err
	}
	defer f.Close()

	return Load(f)
}

// Load reads an input record from r. See LoadFile.
func Load(r io.Reader) (Input, error) {
	br := bufio.NewReader(stripBOM(r))

	first, err := firstNonSpace(br)
	if err == io.EOF {
		return Input{}, nil
	}
	if err != nil {
		return Input{}, fmt.Errorf("reading input: %w", err)
	}

	if first == '{' {
		var input Input
		if err := json.NewDecoder(br).Decode(&input); err != nil {
			return Input{}, fmt.Errorf("parsing input record: %w", err)
		}
		input.Domains = cleanDomains(input.Domains)
		return input, nil
	}

	return loadLines(br)
}

// loadLines reads one domain per line, skipping blanks and # comments.
func loadLines(r io.Reader) (Input, error) {
	var domains []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		domains = append(domains, line)
	}
	if err := scanner.Err(); err != nil {
		return Input{}, fmt.Errorf("reading domain list: %w", err)
	}
	return Input{Domains: domains}, nil
}

func cleanDomains(domains []string) []string {
	cleaned := domains[:0]
	for _, domain := range domains {
		if trimmed := strings.TrimSpace(domain); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// firstNonSpace peeks past leading whitespace without consuming anything
// the decoder will need. io.EOF means the input held nothing but space.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for offset := 1; ; offset++ {
		peeked, err := br.Peek(offset)
		if err != nil {
			return 0, err
		}
		c := peeked[offset-1]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			continue
		}
		return c, nil
	}
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	first, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if first != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
