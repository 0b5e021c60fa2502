// Package messaging owns the delivery domain: ad-hoc sends, spreadsheet
// campaigns imported through the bulk pipeline, and the outbox handler
// that drains due messages through the network adapters.
package messaging

import (
	"fmt"

	"github.com/blastkit/blast/pkg/outbox"
)

// ReadyToSendV1 signals that a request has pending messages due for
// delivery. The send handler drains one batch per event and re-enqueues
// itself while work remains.
type ReadyToSendV1 struct {
	outbox.Meta

	MessageRequestID int64 `json:"message_request_id"`
}

// EventType returns the ready-to-send event tag.
func (ReadyToSendV1) EventType() string { return "messaging.request_ready_to_send.v1" }

// SendDedupKey returns the idempotency hint for a request's send event.
func SendDedupKey(requestID int64) string {
	return fmt.Sprintf("messaging_request:%d:send", requestID)
}
