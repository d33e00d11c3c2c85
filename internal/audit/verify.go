package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult holds the outcome of a hash chain verification.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify walks a JSONL decision log and checks that every entry chains
// from its predecessor. The expected hash starts at GenesisHash and
// advances line by line, so the first entry needs no special case.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	want := GenesisHash
	n := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++

		// Copy: the scanner reuses its buffer.
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return VerifyResult{
				Error:     fmt.Sprintf("parse error: %v", err),
				ErrorLine: n,
			}
		}
		if entry.PrevHash != want {
			return VerifyResult{
				Error:     fmt.Sprintf("chain broken: prev_hash %s, expected %s", entry.PrevHash, want),
				ErrorLine: n,
			}
		}

		want = HashLine(line)
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}

	return VerifyResult{Valid: true, Lines: n}
}
