package protocol

// Method tags, grouped by direction per spec.md §3.
const (
	// Client -> server requests.
	MethodInitialize            = "initialize"
	MethodToolsList              = "tools/list"
	MethodToolsCall              = "tools/call"
	MethodResourcesList          = "resources/list"
	MethodResourcesRead          = "resources/read"
	MethodResourcesTemplatesList = "resources/templates/list"
	MethodPromptsList            = "prompts/list"
	MethodPromptsGet             = "prompts/get"
	MethodLoggingSetLevel        = "logging/setLevel"
	MethodCompletionComplete     = "completion/complete"

	// Server -> client requests.
	MethodSamplingCreateMessage = "sampling/createMessage"
	MethodRootsList             = "roots/list"
	MethodElicitationCreate     = "elicitation/create"

	// Bidirectional.
	MethodPing = "ping"

	// Notifications (either direction).
	NotificationInitialized           = "notifications/initialized"
	NotificationCancelled             = "notifications/cancelled"
	NotificationProgress              = "notifications/progress"
	NotificationMessage               = "notifications/message"
	NotificationResourcesUpdated      = "notifications/resources/updated"
	NotificationResourcesListChanged  = "notifications/resources/list_changed"
	NotificationToolsListChanged      = "notifications/tools/list_changed"
	NotificationPromptsListChanged    = "notifications/prompts/list_changed"
	NotificationRootsListChanged      = "notifications/roots/list_changed"
)

// Family identifies which capability flag gates a given method.
type Family string

const (
	FamilyTools        Family = "tools"
	FamilyResources     Family = "resources"
	FamilyPrompts       Family = "prompts"
	FamilyLogging       Family = "logging"
	FamilySampling      Family = "sampling"
	FamilyRoots         Family = "roots"
	FamilyElicitation   Family = "elicitation"
	// FamilyNone marks methods that are never capability-gated (initialize, ping).
	FamilyNone Family = ""
)

// familyOf maps a method tag to the capability family a peer must have
// advertised before issuing it. Methods absent from this map (initialize,
// ping, and all notifications) are never gated. tools/list, resources/list,
// resources/templates/list, and prompts/list are deliberately absent too:
// per spec.md §4.5 these list endpoints always have a default (the empty
// array) backed by the router/registry or by UnimplementedServerHandler, so
// they are never capability-gated in either direction, unlike tools/call,
// resources/read, and prompts/get.
var familyOf = map[string]Family{
	MethodToolsCall:             FamilyTools,
	MethodResourcesRead:         FamilyResources,
	MethodPromptsGet:            FamilyPrompts,
	MethodLoggingSetLevel:       FamilyLogging,
	MethodSamplingCreateMessage: FamilySampling,
	MethodRootsList:             FamilyRoots,
	MethodElicitationCreate:     FamilyElicitation,
}

// FamilyOf returns the capability family gating method, or FamilyNone if the
// method is ungated (initialize, ping, completion/complete, notifications).
func FamilyOf(method string) Family {
	if f, ok := familyOf[method]; ok {
		return f
	}
	return FamilyNone
}
