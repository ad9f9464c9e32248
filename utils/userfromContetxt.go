package utils

import (
	"context"

	"recipeshare/globals"
)

func GetUserIDFromContext(ctx context.Context) string {
	requestingUserID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(globals.RequestIDKey).(string)
	return requestID
}
