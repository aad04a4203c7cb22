package model

type TurnRole string

const (
	TurnRoleUser      = TurnRole("user")
	TurnRoleAssistant = TurnRole("assistant")
	TurnRoleSystem    = TurnRole("system")
)

// Turn is one message of a dialogue sent upstream.
type Turn struct {
	Role    TurnRole
	Content string
}

func NewUserTurn(content string) Turn {
	return Turn{Role: TurnRoleUser, Content: content}
}

func NewAssistantTurn(content string) Turn {
	return Turn{Role: TurnRoleAssistant, Content: content}
}
