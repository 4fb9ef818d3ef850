package llm

// ContentType represents the kind of a content part.
type ContentType string

const (
	ContentTypeText       ContentType = "text"
	ContentTypeImage      ContentType = "image"
	ContentTypeAudio      ContentType = "audio"
	ContentTypeDocument   ContentType = "document"
	ContentTypeToolCall   ContentType = "tool_call"
	ContentTypeToolOutput ContentType = "tool_output"
	ContentTypeThought    ContentType = "thought"
)

// ContentPart is a single typed unit of message content.
// Exactly one payload field is populated, matching Type. Parts are built
// through the New* constructors, which derive Type; it is never set
// independently.
type ContentPart struct {
	Type       ContentType     `json:"type"`
	Text       string          `json:"text,omitempty"`
	Image      *ImagePart      `json:"image,omitempty"`
	Audio      *AudioPart      `json:"audio,omitempty"`
	Document   *DocumentPart   `json:"document,omitempty"`
	ToolCall   *ToolCallPart   `json:"tool_call,omitempty"`
	ToolOutput *ToolOutputPart `json:"tool_output,omitempty"`
	Thought    *ThoughtPart    `json:"thought,omitempty"`
}

// ImagePart references an image either by URL or as base64 data.
type ImagePart struct {
	URL      string `json:"url,omitempty"`
	Data     string `json:"data,omitempty"` // base64
	MimeType string `json:"mime_type,omitempty"`
}

// AudioPart holds base64 audio data. Providers without audio input support
// reject it at encode time.
type AudioPart struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mime_type"`
}

// DocumentPart holds a document as base64 bytes or plain text.
type DocumentPart struct {
	Data      string `json:"data,omitempty"` // base64
	Text      string `json:"text,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// ToolCallPart is an assistant's request to invoke a tool.
// Args holds the raw JSON argument string to avoid unnecessary
// deserialization.
type ToolCallPart struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// ToolOutputPart holds the result of a tool invocation, keyed by the call ID.
type ToolOutputPart struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Result string `json:"result"`
}

// ThoughtPart is a reasoning block emitted by extended-thinking models.
// Signature carries the provider's opaque continuation token when one is
// surfaced outside the raw-message round trip. Redacted thoughts carry
// provider-encrypted data in Signature and no Thought text.
type ThoughtPart struct {
	Thought   string `json:"thought"`
	Redacted  bool   `json:"redacted,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// NewText creates a text content part.
func NewText(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// NewImageURL creates an image content part referencing a URL.
func NewImageURL(url string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &ImagePart{URL: url}}
}

// NewImageData creates an image content part from base64 data.
func NewImageData(data, mimeType string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &ImagePart{Data: data, MimeType: mimeType}}
}

// NewAudio creates an audio content part from base64 data.
func NewAudio(data, mimeType string) ContentPart {
	return ContentPart{Type: ContentTypeAudio, Audio: &AudioPart{Data: data, MimeType: mimeType}}
}

// NewDocument creates a document content part from base64 data.
func NewDocument(data, mediaType string) ContentPart {
	return ContentPart{Type: ContentTypeDocument, Document: &DocumentPart{Data: data, MediaType: mediaType}}
}

// NewToolCall creates a tool call content part. Args must be a JSON string.
func NewToolCall(id, name, args string) ContentPart {
	return ContentPart{Type: ContentTypeToolCall, ToolCall: &ToolCallPart{ID: id, Name: name, Args: args}}
}

// NewToolOutput creates a tool output content part for the given call ID.
func NewToolOutput(id, name, result string) ContentPart {
	return ContentPart{Type: ContentTypeToolOutput, ToolOutput: &ToolOutputPart{ID: id, Name: name, Result: result}}
}

// NewThought creates a thought content part.
func NewThought(thought string) ContentPart {
	return ContentPart{Type: ContentTypeThought, Thought: &ThoughtPart{Thought: thought}}
}

// NewRedactedThought creates a redacted thought part carrying the provider's
// encrypted payload.
func NewRedactedThought(data string) ContentPart {
	return ContentPart{Type: ContentTypeThought, Thought: &ThoughtPart{Redacted: true, Signature: data}}
}
