// Package prompt 根据租户配置和检索到的知识组装系统提示词
// Build 是纯函数：相同输入总是得到相同输出，不做任何 I/O
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ashwinyue/next-assistant/internal/model"
)

const (
	// MaxExcerpts 最多引用的知识条目数
	MaxExcerpts = 3
	// ExcerptRunes 单条知识摘录的最大字符数
	ExcerptRunes = 300
)

// Build 组装系统提示词
// 顺序：基础模板（自定义模板优先） -> 训练指令列表 -> 人设 -> 知识摘录 -> 免责声明
func Build(cfg *model.Tenant, matches []*model.KnowledgeEntry) string {
	sections := make([]string, 0, 5)

	base := strings.TrimSpace(cfg.SystemPromptTemplate)
	if base == "" {
		base = LookupDomain(cfg.ExpertiseDomain).Template
	}
	sections = append(sections, base)

	if instructions := nonBlank(cfg.TrainingInstructions); len(instructions) > 0 {
		var b strings.Builder
		b.WriteString("Additional instructions:")
		for _, ins := range instructions {
			b.WriteString("\n- ")
			b.WriteString(ins)
		}
		sections = append(sections, b.String())
	}

	if p := strings.TrimSpace(cfg.Personality); p != "" {
		sections = append(sections, "Personality and tone: "+p)
	}

	if len(matches) > 0 {
		var b strings.Builder
		b.WriteString("Use the following knowledge when it is relevant:")
		for i, m := range matches {
			if i == MaxExcerpts {
				break
			}
			fmt.Fprintf(&b, "\n[%d] %s: %s", i+1, m.Title, Excerpt(m.Content, ExcerptRunes))
		}
		sections = append(sections, b.String())
	}

	if disclaimers := nonBlank(cfg.Disclaimers); len(disclaimers) > 0 {
		sections = append(sections, "Always include these disclaimers where relevant:\n"+strings.Join(disclaimers, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

// Excerpt 截断到 maxRunes 个字符，截断时追加省略号
func Excerpt(content string, maxRunes int) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= maxRunes {
		return content
	}
	runes := []rune(content)
	return strings.TrimRightFunc(string(runes[:maxRunes]), isSpace) + "..."
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

func nonBlank(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
