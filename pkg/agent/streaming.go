package agent

// ChunkType is the closed set of streaming chunk kinds a Provider may emit,
// grounded on codeready-toolchain-tarsy/pkg/agent/llm_client.go's Chunk
// variants, trimmed to what the four structured-output roles need: text
// tokens, the model's thinking trace, and a final usage/error frame.
type ChunkType string

const (
	ChunkTypeText     ChunkType = "text"
	ChunkTypeThinking ChunkType = "thinking"
	ChunkTypePartial  ChunkType = "partial_object"
	ChunkTypeUsage    ChunkType = "usage"
	ChunkTypeError    ChunkType = "error"
)

// Chunk is one frame of a streamed response.
type Chunk interface {
	chunkType() ChunkType
}

// TextChunk carries one increment of generated text.
type TextChunk struct{ Content string }

func (TextChunk) chunkType() ChunkType { return ChunkTypeText }

// ThinkingChunk carries one increment of the model's reasoning trace, when
// the provider exposes one.
type ThinkingChunk struct{ Content string }

func (ThinkingChunk) chunkType() ChunkType { return ChunkTypeThinking }

// PartialObjectChunk carries a partially-built structured output, useful
// for progressive UI rendering. Partial objects are never treated as final
// — only the fully validated return value of an AgentClient call is.
type PartialObjectChunk struct{ JSON string }

func (PartialObjectChunk) chunkType() ChunkType { return ChunkTypePartial }

// UsageChunk carries token accounting, usually the final frame.
type UsageChunk struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func (UsageChunk) chunkType() ChunkType { return ChunkTypeUsage }

// ErrorChunk signals a mid-stream provider fault.
type ErrorChunk struct {
	Message   string
	Retryable bool
}

func (ErrorChunk) chunkType() ChunkType { return ChunkTypeError }

// StreamHandlers is the optional, language-agnostic hook every agent-client
// operation accepts (spec.md §4.4, §9). None of the callbacks affect the
// operation's final return value — they exist purely for the caller to
// observe progress (e.g. forwarding tokens to a UI over a websocket).
type StreamHandlers struct {
	OnToken     func(text string)
	OnThinking  func(text string)
	OnPartial   func(json string)
	OnChunk     func(c Chunk)
	OnCompleted func()
}

func (h *StreamHandlers) dispatch(c Chunk) {
	if h == nil {
		return
	}
	if h.OnChunk != nil {
		h.OnChunk(c)
	}
	switch v := c.(type) {
	case *TextChunk:
		if h.OnToken != nil {
			h.OnToken(v.Content)
		}
	case *ThinkingChunk:
		if h.OnThinking != nil {
			h.OnThinking(v.Content)
		}
	case *PartialObjectChunk:
		if h.OnPartial != nil {
			h.OnPartial(v.JSON)
		}
	}
}

func (h *StreamHandlers) complete() {
	if h != nil && h.OnCompleted != nil {
		h.OnCompleted()
	}
}
