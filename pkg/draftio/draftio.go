// Package draftio reads record drafts from JSON: either one array of objects
// or a stream of objects, one after another.
package draftio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/harrisonrobin/crmsync/pkg/normalize"
)

// Stdin is the file name that reads standard input.
const Stdin = "-"

// Parse decodes drafts from r. Numbers are kept as json.Number so large ids
// survive.
func Parse(r io.Reader) ([]normalize.Draft, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(br)
	decoder.UseNumber()

	if first == '[' {
		var drafts []normalize.Draft
		if err := decoder.Decode(&drafts); err != nil {
			return nil, fmt.Errorf("failed to decode draft array: %w", err)
		}
		return drafts, nil
	}

	var drafts []normalize.Draft
	for {
		var d normalize.Draft
		if err := decoder.Decode(&d); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode draft %d: %w", len(drafts)+1, err)
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// ReadFile parses the drafts in path, or standard input when path is "-".
func ReadFile(path string, stdin io.Reader) ([]normalize.Draft, error) {
	if path == Stdin {
		return Parse(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	drafts, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return drafts, nil
}
