package mcp

import (
	"context"

	"github.com/mdombrov-33/go-promptguard/detector"
)

// sanitizeEnabled mirrors the mcp.sanitize config key. Serve sets it from
// config; tests flip it directly.
var sanitizeEnabled = true

// filterNotice replaces entry text that trips the injection detector.
const filterNotice = "[content filtered for security]"

// promptGuard is the package-level detector instance. Initialized once at
// import time with all pattern-matching and statistical detectors enabled,
// no LLM judge. This keeps screening sub-millisecond per entry.
var promptGuard = detector.New(
	detector.WithThreshold(0.6),          // stricter than default 0.7: we serve third-party corpus files, not user input
	detector.WithAllDetectors(),          // role injection, prompt leak, instruction override, obfuscation, normalization, delimiter
	detector.WithMaxInputLength(64*1024), // bodies are whole segments, not short snippets
)

// sanitizeContent screens corpus text before it reaches an MCP client.
// Corpus files are data, not instructions: an entry whose text tries to
// smuggle directives to the model is replaced wholesale with a notice
// rather than partially redacted, so nothing of the payload survives.
func sanitizeContent(text string) string {
	if !sanitizeEnabled || text == "" {
		return text
	}
	result := promptGuard.Detect(context.Background(), text)
	if !result.Safe {
		return filterNotice
	}
	return text
}
