// Package fuzztok generates random streams of valid DC tokens for lexer
// round-trip and benchmark tests. Adapted from the teacher's
// internal/test.GetRandomTokens, with the token vocabulary replaced by
// DC's own keywords, types, and punctuation.
package fuzztok

import (
	"math/rand"
	"strings"
)

// validTokens is delimited by '|' rather than ';': ';' is itself a
// meaningful DC token (the statement terminator) and so cannot double as
// the field separator.
const validTokens = "extern|context|declare|assign|deref|if|fi|else|elif|array|return|i64|i32|i16|i8|ptr|str|i32*|ptr*|main|x|y|result|counter|->|==|!=|<=|>=|+|-|*|/|=|<|>|%|;|(|)|,|42|7|'a'|\"hello\\n\""

// GetRandomTokens joins size tokens drawn from DC's vocabulary with a
// single space, suitable for feeding to the lexer.
func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

// GetRandomTokensWithSep is GetRandomTokens with a caller-chosen separator.
func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, "|")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}
