package service

// Broadcaster pushes interview events to live observers (e.g. an advisor
// dashboard over WebSocket). Implemented by the ws hub.
type Broadcaster interface {
	BroadcastToObservers(sessionID string, event string, payload interface{})
}
