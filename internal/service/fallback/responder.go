package fallback

import (
	"fmt"
	"strings"

	"github.com/ashwinyue/next-assistant/internal/service/prompt"
	"github.com/ashwinyue/next-assistant/internal/service/provider"
)

// Responder 本地兜底应答
type Responder struct {
	highlighter Highlighter
}

// NewResponder 创建本地兜底应答
func NewResponder() *Responder {
	return &Responder{}
}

var _ provider.Responder = (*Responder)(nil)

// Respond 有知识命中时摘录第一条命中的相关行，否则返回引用租户领域的通用回复
func (r *Responder) Respond(req *provider.CompletionRequest) string {
	if len(req.Knowledge) > 0 {
		if reply := r.fromKnowledge(req); reply != "" {
			return reply
		}
	}
	return GenericReply(req.ExpertiseDomain)
}

func (r *Responder) fromKnowledge(req *provider.CompletionRequest) string {
	best := req.Knowledge[0]
	lines := r.highlighter.Highlight(best, req.UserMessage)
	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	title := strings.TrimSpace(best.Title)
	if title == "" {
		title = "your question"
	}
	fmt.Fprintf(&b, "Here's what I found about %s:\n", title)
	for _, line := range lines {
		b.WriteByte('\n')
		if !isListItem(line) {
			b.WriteString("- ")
		}
		b.WriteString(line)
	}

	if len(req.Knowledge) > 1 {
		others := make([]string, 0, 2)
		for _, e := range req.Knowledge[1:] {
			if len(others) == 2 {
				break
			}
			if t := strings.TrimSpace(e.Title); t != "" {
				others = append(others, t)
			}
		}
		if len(others) > 0 {
			fmt.Fprintf(&b, "\n\nI also have information on: %s.", strings.Join(others, ", "))
		}
	}
	return b.String()
}

// GenericReply 没有可用知识时的模板回复
func GenericReply(domain string) string {
	return fmt.Sprintf("Thanks for reaching out! I'm here to help with %s, but I can't give you a detailed answer right now. "+
		"Could you share a bit more detail or try again in a moment?", prompt.LookupDomain(domain).Label)
}
