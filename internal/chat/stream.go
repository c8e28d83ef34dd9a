package chat

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

type streamEvent struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

type streamOutput struct {
	Text    string
	IsError bool
	// Parsed is false when no line of the output was a recognised event.
	Parsed bool
}

// parseStream reads line-delimited JSON events. The final result event wins
// over the concatenated assistant text; lines that are not JSON are skipped.
func parseStream(data []byte) streamOutput {
	var (
		out       streamOutput
		assistant []string
		result    *string
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var event streamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		switch event.Type {
		case "assistant":
			out.Parsed = true
			for _, block := range event.Message.Content {
				if block.Type == "text" && block.Text != "" {
					assistant = append(assistant, block.Text)
				}
			}
		case "result":
			out.Parsed = true
			out.IsError = event.IsError
			text := event.Result
			result = &text
		}
	}

	if result != nil && strings.TrimSpace(*result) != "" {
		out.Text = strings.TrimSpace(*result)
	} else {
		out.Text = strings.TrimSpace(strings.Join(assistant, "\n"))
	}
	return out
}
