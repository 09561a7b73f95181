package solana

import (
	"encoding/base64"
	"strings"
)

const programDataPrefix = "Program data: "

// ProgramDataEvents returns the decoded "Program data:" payloads emitted
// directly by programID, following the invoke/success call stack in logs.
// Payloads emitted by CPI callees are attributed to the callee.
func ProgramDataEvents(logs []string, programID string) [][]byte {
	var stack []string
	var events [][]byte

	for _, line := range logs {
		switch {
		case strings.HasPrefix(line, "Program ") && strings.Contains(line, " invoke ["):
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				stack = append(stack, fields[1])
			}
		case strings.HasPrefix(line, "Program ") && !isProgramMessage(line) &&
			(strings.HasSuffix(line, " success") || strings.Contains(line, " failed")):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case strings.HasPrefix(line, programDataPrefix):
			if len(stack) == 0 || stack[len(stack)-1] != programID {
				continue
			}
			payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, programDataPrefix))
			if err != nil {
				continue
			}
			events = append(events, payload)
		}
	}

	return events
}

// isProgramMessage reports log/data/return lines, which never change the call stack.
func isProgramMessage(line string) bool {
	return strings.HasPrefix(line, "Program log:") ||
		strings.HasPrefix(line, "Program data:") ||
		strings.HasPrefix(line, "Program return:")
}
