package rag

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// corpusRecord 是语料文件中的一行: {"text": "...", "metadata": {...}}.
type corpusRecord struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// LoadCorpus 从 newline-delimited JSON 文件加载文档块。
// 摄取工具与词法索引初始化共用此加载器.
func LoadCorpus(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	return ReadCorpus(f)
}

// ReadCorpus 从 reader 解析 JSONL 语料记录.
func ReadCorpus(r io.Reader) ([]Document, error) {
	scanner := bufio.NewScanner(r)
	// 法律条款块可能很长，放宽单行上限
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var docs []Document
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec corpusRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", lineNo, err)
		}
		if rec.Text == "" {
			return nil, fmt.Errorf("corpus line %d: empty text", lineNo)
		}

		doc := Document{
			ID:       fmt.Sprintf("chunk-%d", len(docs)),
			Content:  rec.Text,
			Metadata: rec.Metadata,
		}
		if rec.Metadata != nil {
			if id, ok := rec.Metadata["id"].(string); ok && id != "" {
				doc.ID = id
			}
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	return docs, nil
}
