// Package messenger defines the network adapter port and its capability
// surface. Adapters implement Messenger plus whichever capability
// interfaces their network supports; the Registry discovers capabilities
// via type assertions and exposes them as Descriptors.
package messenger

import (
	"context"
	"errors"

	"github.com/blastkit/blast/pkg/models"
)

// ErrNoSession is returned by send and login operations invoked before a
// session was bound with SetSession.
var ErrNoSession = errors.New("no active session, log in first")

// Messenger is the minimal surface every network adapter provides. One
// adapter instance exists per network; ForSession binds a session onto it
// before use.
type Messenger interface {
	// Network identifies the network this adapter talks to.
	Network() models.NetworkType

	// SetSession binds (or clears, with nil) the active session. Adapters
	// reject sessions belonging to another network.
	SetSession(session *models.Session) error

	// SendText delivers a plain text message to the contact.
	SendText(ctx context.Context, contact models.Contact, text string) error

	// SendMedia delivers a file with an optional caption to the contact.
	SendMedia(ctx context.Context, contact models.Contact, text string, file *models.File) error
}

// Send routes to SendMedia when a file is attached, SendText otherwise.
func Send(ctx context.Context, m Messenger, contact models.Contact, text string, file *models.File) error {
	if file != nil {
		return m.SendMedia(ctx, contact, text, file)
	}
	return m.SendText(ctx, contact, text)
}
