package gemini

// GeminiRequest represents the native Gemini GenerateContent API request
type GeminiRequest struct {
	Contents          []Content          `json:"contents"`
	GenerationConfig  *GenerationConfig  `json:"generationConfig,omitempty"`
	SystemInstruction *SystemInstruction `json:"systemInstruction,omitempty"`
}

// Content represents a content block in the request
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part represents a part of content
type Part struct {
	Text string `json:"text"`
}

// SystemInstruction represents system instructions
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// GenerationConfig represents generation configuration
type GenerationConfig struct {
	Temperature     float32  `json:"temperature,omitempty"`
	TopP            float32  `json:"topP,omitempty"`
	TopK            int      `json:"topK,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// GeminiResponse represents the response from the Gemini API.
// Different API revisions have surfaced text through different fields, so
// Candidate keeps the alternates the extraction strategies probe.
type GeminiResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	Text          string        `json:"text,omitempty"` // legacy top-level shape
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
}

// Candidate represents a response candidate
type Candidate struct {
	Content      Content `json:"content"`
	Output       string  `json:"output,omitempty"` // PaLM-era shape
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

// UsageMetadata represents token usage information
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// ErrorResponse represents an error from Gemini API
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
