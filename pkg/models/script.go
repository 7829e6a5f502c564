package models

import "strings"

// Block is one narration block of a script
type Block struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

// Script is the narration written for a topic, in a single language
type Script struct {
	Topic    string  `json:"topic"`
	Language string  `json:"language"`
	Blocks   []Block `json:"blocks"`
	Source   string  `json:"source,omitempty"`
}

// Texts returns the block texts in order
func (s *Script) Texts() []string {
	texts := make([]string, len(s.Blocks))
	for i, b := range s.Blocks {
		texts[i] = b.Text
	}
	return texts
}

// BlocksFromTexts wraps plain lines into blocks
func BlocksFromTexts(texts []string) []Block {
	blocks := make([]Block, len(texts))
	for i, t := range texts {
		blocks[i] = Block{Text: t}
	}
	return blocks
}

// BlocksFromLines splits free text on newlines, dropping blank lines
func BlocksFromLines(content string, limit int) []Block {
	var blocks []Block
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, Block{Text: line})
		if limit > 0 && len(blocks) == limit {
			break
		}
	}
	return blocks
}

// Topic is a trending subject a video can be generated for
type Topic struct {
	Title   string   `json:"title"`
	Related []string `json:"related,omitempty"`
	Traffic string   `json:"traffic,omitempty"`
}
