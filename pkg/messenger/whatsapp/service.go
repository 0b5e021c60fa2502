package whatsapp

import "context"

// MediaMessage is one outbound media delivery. Media carries the base64
// encoded content.
type MediaMessage struct {
	Number    string
	MediaType string
	MimeType  string
	Caption   string
	Media     string
	FileName  string
}

// Service is the Evolution API port. Instances are the per-session WhatsApp
// connections Evolution manages; every call is addressed to one by name.
type Service interface {
	// CreateInstance provisions the instance. Creating an existing instance
	// is not an error.
	CreateInstance(ctx context.Context, instanceName, integration string) error

	// ConnectInstance starts the pairing flow and returns the QR payload.
	ConnectInstance(ctx context.Context, instanceName string) (string, error)

	// ConnectionStatus reports the instance state (e.g. "open", "close").
	ConnectionStatus(ctx context.Context, instanceName string) (string, error)

	SendText(ctx context.Context, instanceName, number, text string) error
	SendMedia(ctx context.Context, instanceName string, msg MediaMessage) error
}
