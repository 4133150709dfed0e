package ai

type ToolContent struct {
	Type    string
	Content any
}

type ToolResult struct {
	Content []ToolContent
	Error   bool
}

// TextResult wraps plain text in a successful tool result.
func TextResult(text string) *ToolResult {
	return &ToolResult{
		Content: []ToolContent{{Type: "text", Content: text}},
	}
}

// ErrorResult wraps an error message in a failed tool result.
// The message is sent back to the model so it can correct itself.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{
		Content: []ToolContent{{Type: "text", Content: text}},
		Error:   true,
	}
}

// ImageResult wraps PNG bytes plus a short text confirmation. The binary
// payload is delivered to the caller as an artifact; the model only sees
// the text part.
func ImageResult(png []byte, text string) *ToolResult {
	return &ToolResult{
		Content: []ToolContent{
			{Type: "image", Content: png},
			{Type: "text", Content: text},
		},
	}
}
