package llm

// GenerationRequest is one structured-generation call. RenderedPrompt is sent
// as the system turn and InputText as the user turn.
type GenerationRequest struct {
	PromptTemplate string
	RenderedPrompt string
	InputText      string
	// Temperature and MaxTokens override the gateway defaults when set.
	Temperature *float64
	MaxTokens   int
	Streaming   bool
	Model       string
}

// Result is a completed generation. FallbackFrom names the provider that
// failed first when the text came from its alternate.
type Result struct {
	ChatResponse
	FallbackFrom string `json:"fallback_from,omitempty"`
}

func (r *Result) Text() string {
	return r.Content
}
