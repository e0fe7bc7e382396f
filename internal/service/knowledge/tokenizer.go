package knowledge

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopwords 查询中不参与匹配的常见词
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "how": {}, "show": {}, "what": {}, "whats": {},
	"your": {}, "you": {}, "are": {}, "can": {}, "could": {}, "does": {}, "did": {},
	"tell": {}, "about": {}, "for": {}, "with": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "was": {}, "please": {}, "give": {}, "list": {}, "have": {}, "has": {},
	"who": {}, "why": {}, "when": {}, "where": {}, "which": {}, "our": {}, "get": {},
	"any": {}, "there": {}, "from": {}, "into": {}, "want": {}, "need": {}, "know": {},
	"would": {}, "should": {}, "will": {}, "like": {}, "some": {}, "more": {}, "much": {},
	"many": {}, "it's": {}, "i'm": {}, "them": {}, "they": {}, "their": {}, "then": {},
	"than": {}, "also": {}, "just": {}, "help": {},
}

// Tokenize 把查询切分为匹配用的关键词
// 小写化，按空白和连字符切分，去掉首尾标点、长度 <= 2 的词和停用词，保持首次出现顺序
func Tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})

	tokens := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ContainsAny 判断 text（不区分大小写）是否包含任一关键词
func ContainsAny(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
