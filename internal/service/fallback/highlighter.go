// Package fallback 提供不访问网络的本地兜底应答
// 高亮器是尽力而为的关键词启发式：只挑选看起来相关的行，不理解语义，也不保证答案正确
package fallback

import (
	"strings"
	"unicode"

	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/service/knowledge"
	"github.com/ashwinyue/next-assistant/internal/service/prompt"
)

// MaxHighlightLines 最多摘取的行数
const MaxHighlightLines = 5

// topic 一类问题：查询里的触发词，以及判定相关行的线索词
type topic struct {
	name        string
	triggers    []string
	hints       []string
	preferLists bool
}

var topics = []topic{
	{
		name:     "pricing",
		triggers: []string{"price", "pricing", "cost", "fee", "plan", "subscription", "charge", "pay"},
		hints:    []string{"$", "€", "£", "price", "cost", "fee", "per month", "/mo", "plan", "free"},
	},
	{
		name:     "hours",
		triggers: []string{"hour", "open", "close", "schedule", "weekend", "holiday"},
		hints:    []string{":00", "open", "close", "monday", "friday", "saturday", "sunday", "daily", "hours"},
	},
	{
		name:     "returns",
		triggers: []string{"return", "refund", "exchange", "warranty", "guarantee", "policy"},
		hints:    []string{"day", "refund", "return", "exchange", "receipt", "warranty", "guarantee"},
	},
	{
		name:     "contact",
		triggers: []string{"contact", "phone", "email", "call", "reach", "address", "support"},
		hints:    []string{"@", "phone", "email", "call", "address", "tel", "support"},
	},
	{
		name:        "steps",
		triggers:    []string{"how", "steps", "setup", "set", "install", "start", "process", "guide"},
		hints:       []string{"step", "first", "then", "next", "finally"},
		preferLists: true,
	},
}

// Highlighter 从单条知识中挑选与查询相关的行
type Highlighter struct{}

// Highlight 返回不超过 MaxHighlightLines 行的摘录，内容为空时返回 nil
func (Highlighter) Highlight(entry *model.KnowledgeEntry, query string) []string {
	lines := contentLines(entry.Content)
	if len(lines) == 0 {
		return nil
	}

	t, ok := detectTopic(query)
	tokens := knowledge.Tokenize(query)

	picked := make([]string, 0, MaxHighlightLines)
	for _, line := range lines {
		if len(picked) == MaxHighlightLines {
			break
		}
		if relevant(line, t, ok, tokens) {
			picked = append(picked, line)
		}
	}
	if len(picked) > 0 {
		return picked
	}

	// 没有命中任何线索时取开头部分
	if len(lines) == 1 {
		return []string{prompt.Excerpt(lines[0], prompt.ExcerptRunes)}
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return lines
}

func relevant(line string, t topic, hasTopic bool, tokens []string) bool {
	if hasTopic {
		if t.preferLists && isListItem(line) {
			return true
		}
		if knowledge.ContainsAny(line, t.hints) {
			return true
		}
	}
	return knowledge.ContainsAny(line, tokens)
}

// detectTopic 按查询词前缀匹配，第一个命中的话题生效
func detectTopic(query string) (topic, bool) {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, t := range topics {
		for _, w := range words {
			for _, trigger := range t.triggers {
				if strings.HasPrefix(w, trigger) {
					return t, true
				}
			}
		}
	}
	return topic{}, false
}

// contentLines 先按行再按句切分，去掉空行
func contentLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isListItem(line) {
			out = append(out, line)
			continue
		}
		out = append(out, splitSentences(line)...)
	}
	return out
}

// isListItem 以 -、*、• 或 "1." "2)" 开头的行
func isListItem(line string) bool {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "•") {
		return true
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')')
}
