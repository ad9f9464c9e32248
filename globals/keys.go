package globals

type contextKey string

const (
	UserIDKey    contextKey = "userId"
	UserNameKey  contextKey = "userName"
	UserEmailKey contextKey = "userEmail"
	RequestIDKey contextKey = "requestId"
)
