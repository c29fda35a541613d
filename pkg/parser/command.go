package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Request is a parsed swap phrase before symbols are resolved against the
// configured pair.
type Request struct {
	Amount      string
	SourceToken string
	DestToken   string
}

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 TKA to TKB"
//   - "1.5 TKA to TKB"
//   - "100 TKB to TKA"
func ParseSwapCommand(command string) (*Request, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 TKA to TKB')")
	}

	return &Request{
		Amount:      matches[1],
		SourceToken: matches[2],
		DestToken:   matches[3],
	}, nil
}

// NormalizeTokenSymbol normalizes token symbols for comparison against
// on-ledger symbols.
func NormalizeTokenSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}
