package social

import "context"

// ConnectionStatus describes whether a publisher holds a live session.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Publisher posts composed images to a social platform on behalf of one
// agent. Authenticate must succeed before Publish is usable.
type Publisher interface {
	Authenticate(ctx context.Context) error
	Publish(ctx context.Context, imagePNG []byte, caption string) error
	ConnectionStatus() ConnectionStatus
}
