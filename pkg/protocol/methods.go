package protocol

// RPC method name constants. Names are wire-exact: the dashboard and
// the agent prompt trailer both spell them out.

// Channel methods
const (
	MethodChannelsList          = "company.channels.list"
	MethodChannelsGet           = "company.channels.get"
	MethodChannelsCreate        = "company.channels.create"
	MethodChannelsDelete        = "company.channels.delete"
	MethodChannelsPost          = "company.channels.post"
	MethodChannelsHistory       = "company.channels.history"
	MethodChannelsMembersAdd    = "company.channels.members.add"
	MethodChannelsMembersRemove = "company.channels.members.remove"
)

// Task methods
const (
	MethodTasksCreate    = "tasks.create"
	MethodTasksGet       = "tasks.get"
	MethodTasksUpdate    = "tasks.update"
	MethodTasksList      = "tasks.list"
	MethodTasksLogs      = "tasks.logs"
	MethodTasksLog       = "tasks.log"
	MethodTasksHeartbeat = "tasks.heartbeat"
	MethodTasksSummary   = "tasks.summary"
)

// Company lifecycle
const (
	MethodCompanyCreate = "company.create"
)

// Methods the core invokes on the external LLM gateway. The core never
// serves these; it is a client only.
const (
	MethodAgent = "agent"
)
