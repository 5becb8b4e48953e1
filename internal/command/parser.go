package command

import (
	"strings"
	"unicode"
)

// Invocation is a parsed `!<prefix> --<sub> [payload]` message.
type Invocation struct {
	// Subcommand is the token after the first "--", empty when the message
	// carries no flag.
	Subcommand string
	// Payload is everything after the sub-command token, trimmed.
	Payload string
}

// Parse splits a chat line addressed to prefix into an Invocation.
//
// Only the first "--" token after the prefix is treated as a flag. The rest
// of the line is the payload verbatim, so a JSON body that itself contains
// "--import" is never re-split.
//
// Postcondition: ok is false when the first word of line is not exactly
// "!"+prefix.
func Parse(line, prefix string) (inv Invocation, ok bool) {
	line = strings.TrimSpace(line)
	head, rest := cut(line)
	if head != "!"+prefix {
		return Invocation{}, false
	}

	if !strings.HasPrefix(rest, "--") {
		return Invocation{Payload: rest}, true
	}

	token, payload := cut(rest[2:])
	return Invocation{Subcommand: token, Payload: payload}, true
}

// cut returns the first whitespace-delimited word of s and the trimmed
// remainder.
func cut(s string) (word, rest string) {
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}
