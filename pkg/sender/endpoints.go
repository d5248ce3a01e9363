package sender

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const maxTokenLineLength = 1024 * 1024

// Endpoint is one fully-formed connection target: the base address with a
// token appended.
type Endpoint string

// ReadTokens reads one token per line from r. Surrounding whitespace is
// trimmed and blank lines are skipped.
func ReadTokens(r io.Reader) ([]string, error) {
	tokens := make([]string, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxTokenLineLength)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if len(token) == 0 {
			continue
		}
		tokens = append(tokens, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// BuildEndpoints concatenates every token onto the base address, preserving
// order.
func BuildEndpoints(baseURL string, tokens []string) []Endpoint {
	endpoints := make([]Endpoint, 0, len(tokens))
	for _, token := range tokens {
		endpoints = append(endpoints, Endpoint(baseURL+token))
	}
	return endpoints
}

// LoadEndpoints reads the tokens file at the given path and builds one
// endpoint per token. An unreadable or empty file is a configuration error.
func LoadEndpoints(baseURL, path string) ([]Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewError(ErrFailedToReadTokensFile, err, path)
	}
	defer f.Close()

	tokens, err := ReadTokens(f)
	if err != nil {
		return nil, NewError(ErrFailedToReadTokensFile, err, path)
	}
	if len(tokens) == 0 {
		return nil, NewError(ErrNoEndpoints, nil, path)
	}
	return BuildEndpoints(baseURL, tokens), nil
}
