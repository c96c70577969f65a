package types

// GenerateRequest is the payload accepted by POST /text-generation/generate.
type GenerateRequest struct {
	// Prompt to continue. Required; an empty string is allowed.
	// example: Artificial Intelligence is a
	Text *string `json:"text" example:"Artificial Intelligence is a"`
}

// GenerateResponse is returned by POST /text-generation/generate.
type GenerateResponse struct {
	// The prompt as received.
	// example: Artificial Intelligence is a
	Input string `json:"input" example:"Artificial Intelligence is a"`
	// Continuation produced by the model, without the echoed prompt.
	// example:  field of computer science that
	Generated string `json:"generated" example:" field of computer science that"`
}

// ConversationRequest is the payload accepted by POST /conversation/conversation.
type ConversationRequest struct {
	// Next user utterance. Required.
	// example: What is the meaning of life?
	Text *string `json:"text" example:"What is the meaning of life?"`
	// Continue an existing conversation; omit to start a new one.
	// example: 5f0c1a4e-8d7b-4c1e-9a55-0b1f3e2d7c44
	ConversationID string `json:"conversation_id,omitempty" example:"5f0c1a4e-8d7b-4c1e-9a55-0b1f3e2d7c44"`
}

// ConversationResponse is returned by POST /conversation/conversation.
type ConversationResponse struct {
	// Textual rendering of the whole conversation.
	// example: Conversation id: 5f0c1a4e-8d7b-4c1e-9a55-0b1f3e2d7c44\nuser >> hi\nbot >> hello\n
	Conversation string `json:"conversation"`
	// Identifier to pass back to continue the conversation.
	// example: 5f0c1a4e-8d7b-4c1e-9a55-0b1f3e2d7c44
	ConversationID string `json:"conversation_id" example:"5f0c1a4e-8d7b-4c1e-9a55-0b1f3e2d7c44"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Lifecycle state of the service (loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Model identifier served by this process.
	// example: microsoft/DialoGPT-medium
	Model string `json:"model" example:"microsoft/DialoGPT-medium"`
	// Generation backend (llama or openai).
	// example: llama
	Backend string `json:"backend" example:"llama"`
	// Compute device the backend reported (cpu, gpu, remote).
	// example: cpu
	Device string `json:"device" example:"cpu"`
	// Number of entries in the tokenizer vocabulary.
	// example: 50257
	VocabSize int `json:"vocab_size" example:"50257"`
	// Tokens added to the prompt length to form the generation budget.
	// example: 20
	LengthIncrement int `json:"length_increment" example:"20"`
	// Generations currently running.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum concurrent generations (0 = unlimited).
	// example: 1
	MaxConcurrent int `json:"max_concurrent" example:"1"`
	// Live conversations held in memory.
	// example: 3
	Conversations int `json:"conversations" example:"3"`
	// Completed generations since start.
	// example: 42
	GenerationsTotal uint64 `json:"generations_total" example:"42"`
	// Last error observed while loading or generating.
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
