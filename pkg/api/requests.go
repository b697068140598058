package api

// CompletionRequest is the body for POST /completions.
type CompletionRequest struct {
	Model  string `json:"model" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
}

// ChatMessage is one message in a chat/completions request.
type ChatMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ChatCompletionRequest is the body for POST /chat/completions. Model
// selects which project the coordinator scopes the plan to.
type ChatCompletionRequest struct {
	Model    string        `json:"model" binding:"required"`
	Messages []ChatMessage `json:"messages" binding:"required,min=1"`
}

// EmbeddingsRequest is the body for POST /embeddings.
type EmbeddingsRequest struct {
	Model string   `json:"model" binding:"required"`
	Input []string `json:"input" binding:"required,min=1"`
}

// CreateProjectRequest is the body for POST /api/clients/:clientId/projects.
type CreateProjectRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}
