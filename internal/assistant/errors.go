package assistant

import "errors"

var (
	ErrEmptyInput           = errors.New("assistant: input is empty")
	ErrTurnInFlight         = errors.New("assistant: a turn is already in flight")
	ErrDemoRunning          = errors.New("assistant: demo script is running")
	ErrInvalidPhase         = errors.New("assistant: phase must be between 1 and 3")
	ErrMessageNotFound      = errors.New("assistant: message not found")
	ErrNotificationNotFound = errors.New("assistant: notification not found")
	ErrNotReactable         = errors.New("assistant: only agent messages take reactions")
	ErrFeatureDisabled      = errors.New("assistant: feature disabled")
	ErrSessionReset         = errors.New("assistant: session was reset")
)
