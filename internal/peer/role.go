package peer

// Role identifies which end of an MCP session a Peer plays. The legal set
// of requests a Peer may issue or must answer is fixed by its Role: a
// client issues initialize/tools/resources/prompts requests and answers
// sampling/roots/elicitation requests; a server is the mirror image.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)
