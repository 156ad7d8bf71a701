package protocol

// SamplingMessage is one message in a sampling/createMessage conversation.
type SamplingMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// CreateMessageParams contains parameters for the server->client
// sampling/createMessage request.
type CreateMessageParams struct {
	Messages         []SamplingMessage `json:"messages"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens,omitempty"`
	Temperature      float64           `json:"temperature,omitempty"`
	StopSequences    []string          `json:"stopSequences,omitempty"`
	ModelPreferences map[string]any    `json:"modelPreferences,omitempty"`
}

// CreateMessageResult is the result of sampling/createMessage.
type CreateMessageResult struct {
	Role       string  `json:"role"`
	Content    Content `json:"content"`
	Model      string  `json:"model"`
	StopReason string  `json:"stopReason,omitempty"`
}

// RootsListResult is the result of the server->client roots/list request.
type RootsListResult struct {
	Roots []Root `json:"roots"`
}

// Root is one workspace root the client exposes to the server.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ElicitationCreateParams requests structured input from the human via the
// client.
type ElicitationCreateParams struct {
	Message         string         `json:"message"`
	RequestedSchema map[string]any `json:"requestedSchema"`
}

// ElicitationCreateResult is the result of elicitation/create.
type ElicitationCreateResult struct {
	Action  string         `json:"action"` // "accept", "decline", "cancel"
	Content map[string]any `json:"content,omitempty"`
}

// LoggingSetLevelParams sets the minimum log level the server should emit
// notifications/message events for.
type LoggingSetLevelParams struct {
	Level string `json:"level"`
}

// CompletionCompleteParams requests argument-completion suggestions.
type CompletionCompleteParams struct {
	Ref      map[string]any    `json:"ref"`
	Argument map[string]string `json:"argument"`
}

// CompletionCompleteResult is the result of completion/complete.
type CompletionCompleteResult struct {
	Completion CompletionValues `json:"completion"`
}

// CompletionValues carries the suggested completion values.
type CompletionValues struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}
