package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	// DefaultSessionTitle is the placeholder every new session starts with.
	// It is replaced by a title derived from the first user message once the
	// first exchange completes.
	DefaultSessionTitle = "New Conversation"

	DefaultChatModel = "qwen-plus"

	// SessionTitleMaxLen is the number of characters kept from the first user
	// message when deriving the session title.
	SessionTitleMaxLen = 30

	// HistoryWindowSize caps the conversation context sent upstream.
	HistoryWindowSize = 10
)

const (
	MediaFileTypeImage = "image"
	MediaFileTypeVideo = "video"
)
