package model

// ChatExchange is one recorded user message and the assembled model reply.
// Values are compared with == when deleting, so the struct must stay comparable.
type ChatExchange struct {
	UserID    string
	Timestamp string
	Model     string
	Message   string
	Response  string
	Provider  Provider
	// Record is the compact JSON of a record loaded from storage. Storages
	// write it back unchanged, so unknown fields and value types survive.
	Record string
}
