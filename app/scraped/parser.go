package scraped

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"time"
)

const (
	readerSize  = 64 * 1024
	maxLineSize = 1024 * 1024
)

var ErrLineTooLong = errors.New("line exceeds maximum size")

// Parse lazily reads a gzip-compressed JSONL archive. Every yielded item
// carries first_seen_on from the line and last_seen_on from the path.
//
// An empty or truncated archive is logged and ends the sequence without
// an error. A malformed or oversized line is logged and yielded as an
// error, after which the sequence stops.
func Parse(path string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		lastSeenOn, err := PathToDate(path)
		if err != nil {
			yield(nil, err)
			return
		}

		f, err := os.Open(path)
		if err != nil {
			yield(nil, fmt.Errorf("failed to open archive: %w", err))
			return
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			if isUnreadable(err) {
				slog.Error("Unreadable archive, probably empty", "path", path)
				return
			}
			slog.Error("Failed to parse archive", "path", path, "error", err)
			yield(nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err))
			return
		}
		defer gz.Close()

		reader := bufio.NewReaderSize(gz, readerSize)
		lineNo := 0
		for {
			line, readErr := readLine(reader)
			if errors.Is(readErr, ErrLineTooLong) {
				slog.Error("Failed to parse line", "path", path, "line_no", lineNo+1, "error", readErr)
				yield(nil, fmt.Errorf("%s line %d: %w", path, lineNo+1, readErr))
				return
			}
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				// a partial line at the point of truncation is discarded
				if isUnreadable(readErr) {
					slog.Error("Unreadable archive, probably truncated", "path", path, "line_no", lineNo)
					return
				}
				slog.Error("Failed to parse archive", "path", path, "error", readErr)
				yield(nil, fmt.Errorf("failed to read %s: %w", path, readErr))
				return
			}

			if len(line) > 0 {
				lineNo++
			}
			if len(bytes.TrimSpace(line)) > 0 {
				item, err := parseLine(line, lastSeenOn)
				if err != nil {
					slog.Error("Failed to parse line", "path", path, "line_no", lineNo, "line", string(line), "error", err)
					yield(nil, fmt.Errorf("%s line %d: %w", path, lineNo, err))
					return
				}
				if !yield(item, nil) {
					return
				}
			}

			if readErr != nil {
				return
			}
		}
	}
}

// readLine returns the next line including its terminator, failing with
// ErrLineTooLong once more than maxLineSize bytes are buffered.
func readLine(reader *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(line)+len(chunk) > maxLineSize {
			return nil, ErrLineTooLong
		}
		line = append(line, chunk...)
		if !errors.Is(err, bufio.ErrBufferFull) {
			return line, err
		}
	}
}

func parseLine(line []byte, lastSeenOn time.Time) (Item, error) {
	var item Item
	if err := json.Unmarshal(line, &item); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("line is not a JSON object")
	}

	raw, ok := item[KeyFirstSeenOn].(string)
	if !ok {
		return nil, fmt.Errorf("missing %s", KeyFirstSeenOn)
	}
	firstSeenOn, err := ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyFirstSeenOn, err)
	}

	item[KeyFirstSeenOn] = firstSeenOn
	item[KeyLastSeenOn] = lastSeenOn

	return item, nil
}

func isUnreadable(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
