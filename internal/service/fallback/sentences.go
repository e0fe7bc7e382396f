package fallback

import (
	"strings"
	"unicode"
)

// splitSentences 在句末标点（其后为空白或文本结尾）和换行处切分句子
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	emit := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i, r := range runes {
		switch {
		case r == '\n':
			emit(i + 1)
		case isSentenceEnd(r):
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) || isCJKSentenceEnd(r) {
				emit(i + 1)
			}
		}
	}
	if start < len(runes) {
		emit(len(runes))
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return isCJKSentenceEnd(r)
}

func isCJKSentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？':
		return true
	}
	return false
}
