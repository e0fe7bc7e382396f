package knowledge

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/schema"
)

// MaxChunkRunes 单个上传分块的最大字符数
const MaxChunkRunes = 1000

// 优先在段落和句末切分，单句超长时才退到词边界，最后按字符硬切
var chunkSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "。", "！", "？", " ", ""}

// ChunkText 按句子边界把文本切成不超过 MaxChunkRunes 个字符的分块
// 分隔符保留在前一块末尾且块间无重叠，用空格拼接全部分块即可还原原文（忽略空白差异）
func ChunkText(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	splitter, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   MaxChunkRunes,
		OverlapSize: 0,
		Separators:  chunkSeparators,
		LenFunc:     utf8.RuneCountInString,
		KeepType:    recursive.KeepTypeEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	docs, err := splitter.Transform(ctx, []*schema.Document{{
		Content:  text,
		MetaData: make(map[string]any),
	}})
	if err != nil {
		return nil, fmt.Errorf("splitter failed: %w", err)
	}

	chunks := make([]string, 0, len(docs))
	for _, doc := range docs {
		if c := strings.TrimSpace(doc.Content); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}
