package model

// Request is the input to one pipeline run. All fields are owned by the
// caller; nothing in a Request survives past response emission.
type Request struct {
	Message         string
	History         []Turn
	KnowledgeBaseID string
	DisplayName     string
	Description     string
}

// RoomDetails identifies where a result should be delivered.
type RoomDetails struct {
	RoomID          string `json:"roomID"`
	ThreadID        string `json:"threadID"`
	CommunicationID string `json:"communicationID"`
	InteractionID   string `json:"vcInteractionID"`
}

// ResultHandler tells the platform what to do with a response.
type ResultHandler struct {
	Action      string      `json:"action"`
	RoomDetails RoomDetails `json:"roomDetails"`
}

// InboundMessage is the queue-level input shape. It carries routing and
// persona fields beyond what the pipeline itself consumes; the extra
// fields are echoed back in the outbound envelope.
type InboundMessage struct {
	Engine            string         `json:"engine,omitempty"`
	Prompt            string         `json:"prompt,omitempty"`
	UserID            string         `json:"userID"`
	Message           string         `json:"message"`
	BodyOfKnowledgeID string         `json:"bodyOfKnowledgeID"`
	ContextID         string         `json:"contextID,omitempty"`
	History           []Turn         `json:"history"`
	ExternalMetadata  map[string]any `json:"externalMetadata,omitempty"`
	DisplayName       string         `json:"displayName"`
	Description       string         `json:"description,omitempty"`
	ExternalConfig    map[string]any `json:"externalConfig,omitempty"`
	ResultHandler     *ResultHandler `json:"resultHandler,omitempty"`
	PersonaServiceID  string         `json:"personaServiceID,omitempty"`
}

// Pattern carries the operation selector of the queue envelope.
type Pattern struct {
	Cmd string `json:"cmd"`
}

// InboundEnvelope is the wire shape consumed from the input queue.
type InboundEnvelope struct {
	Pattern *Pattern        `json:"pattern,omitempty"`
	Input   *InboundMessage `json:"input"`
}

// Operation returns the requested operation, defaulting to a query.
func (e *InboundEnvelope) Operation() string {
	if e.Pattern == nil || e.Pattern.Cmd == "" {
		return OperationQuery
	}
	return e.Pattern.Cmd
}

const (
	OperationQuery = "query"
	OperationReset = "reset"
)

// ToRequest converts the queue-level input into a pipeline Request.
// Mention tags are stripped from the message and every history turn.
func (m *InboundMessage) ToRequest() *Request {
	history := make([]Turn, len(m.History))
	for i, turn := range m.History {
		history[i] = Turn{Role: turn.Role, Content: ClearTags(turn.Content)}
	}

	return &Request{
		Message:         ClearTags(m.Message),
		History:         history,
		KnowledgeBaseID: m.BodyOfKnowledgeID,
		DisplayName:     m.DisplayName,
		Description:     m.Description,
	}
}
