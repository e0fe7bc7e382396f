package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ashwinyue/next-assistant/internal/model"
	"github.com/ashwinyue/next-assistant/internal/service/provider"
)

// DefaultTopic 无法识别话题时的默认值
const DefaultTopic = "general"

const extractionPrompt = `You extract durable memory from one turn of a customer conversation.
Return ONLY a JSON object with these fields:
- "memories": object of short factual key/value pairs about the user (name, location, goals, products owned)
- "preferences": object of the user's stated preferences as key/value pairs
- "topic": one or two words naming the topic of the turn
- "sentiment": one of "positive", "neutral", "negative"
Use empty objects when nothing durable was said. Do not invent facts.`

// Extraction 一轮对话的抽取结果
type Extraction struct {
	Memories    map[string]string `json:"memories"`
	Preferences map[string]string `json:"preferences"`
	Topic       string            `json:"topic"`
	Sentiment   string            `json:"sentiment"`
}

// DefaultExtraction 抽取失败或跳过时使用的默认值
func DefaultExtraction() Extraction {
	return Extraction{
		Memories:    map[string]string{},
		Preferences: map[string]string{},
		Topic:       DefaultTopic,
		Sentiment:   model.SatisfactionNeutral,
	}
}

// Extractor 通过辅助模型调用抽取记忆
type Extractor struct {
	classifier provider.Provider
}

// NewExtractor 创建抽取器
func NewExtractor(classifier provider.Provider) *Extractor {
	return &Extractor{classifier: classifier}
}

// Extract 抽取失败时返回默认值和错误，调用方可以直接使用返回值
func (e *Extractor) Extract(ctx context.Context, userMessage, response string) (Extraction, error) {
	text, err := e.classifier.Complete(ctx, &provider.CompletionRequest{
		SystemPrompt: extractionPrompt,
		UserMessage:  fmt.Sprintf("User: %s\nAssistant: %s", userMessage, response),
		Params:       provider.Params{Temperature: 0.1, MaxTokens: 300},
	})
	if err != nil {
		return DefaultExtraction(), fmt.Errorf("memory extraction call failed: %w", err)
	}

	ex, err := ParseExtraction(text)
	if err != nil {
		return DefaultExtraction(), err
	}
	return ex, nil
}

// rawExtraction 模型输出的宽松结构，值可能不是字符串
type rawExtraction struct {
	Memories    map[string]any `json:"memories"`
	Preferences map[string]any `json:"preferences"`
	Topic       any            `json:"topic"`
	Sentiment   any            `json:"sentiment"`
}

// ParseExtraction 解析模型输出，容忍代码块包裹和轻微损坏的 JSON
func ParseExtraction(raw string) (Extraction, error) {
	s := extractJSONObject(raw)
	if s == "" {
		return DefaultExtraction(), fmt.Errorf("no json object in extraction output")
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return DefaultExtraction(), fmt.Errorf("failed to repair extraction json: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(repaired)))
	dec.UseNumber()
	var r rawExtraction
	if err := dec.Decode(&r); err != nil {
		return DefaultExtraction(), fmt.Errorf("failed to decode extraction json: %w", err)
	}

	ex := DefaultExtraction()
	ex.Memories = stringify(r.Memories)
	ex.Preferences = stringify(r.Preferences)
	if topic := strings.TrimSpace(valueString(r.Topic)); topic != "" {
		ex.Topic = strings.ToLower(topic)
	}
	ex.Sentiment = model.NormalizeSentiment(valueString(r.Sentiment))
	return ex, nil
}

// extractJSONObject 去掉 ``` 包裹，截取第一个 { 到最后一个 }
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		// 被截断的输出交给 jsonrepair 补全
		return s[start:]
	}
	return s[start : end+1]
}

func stringify(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.TrimSpace(k)
		if k == "" || v == nil {
			continue
		}
		if s := strings.TrimSpace(valueString(v)); s != "" {
			out[k] = s
		}
	}
	return out
}

func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
