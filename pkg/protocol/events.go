package protocol

// Event names published on the in-process bus and pushed to WebSocket
// clients. Dashboard frames use these names as the frame type.
const (
	// Channel events
	EventChannelCreated = "channel.created"
	EventChannelDeleted = "channel.deleted"
	EventChannelMessage = "channel.message"
	EventMemberJoined   = "channel.member.joined"
	EventMemberLeft     = "channel.member.left"

	// Task events
	EventTaskCreated   = "task.created"
	EventTaskUpdated   = "task.updated"
	EventTaskLog       = "task.log"
	EventTaskHeartbeat = "task.heartbeat"
	EventTaskStale     = "task.stale"
	EventTaskCompleted = "task.completed"
	EventTaskFailed    = "task.failed"

	// Server-side notifications (not emitted by the stores)
	EventCompanyDocsUpdated = "company.docs.updated"
	EventShutdown           = "shutdown"
)
