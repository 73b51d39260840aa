package notification

import "errors"

var (
	ErrNotificationValidation = errors.New("invalid notification input")
	ErrNotificationState      = errors.New("failed to persist notification state")
	ErrNotificationInternal   = errors.New("internal notification error")
)
