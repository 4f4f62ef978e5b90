package events

import (
	"encoding/json"
	"time"

	"github.com/trilabs/tri-backend/pkg/messaging"
)

// EmailQueuedEvent carries an outbound email to whichever worker picks it
// up. Delivery itself is out of scope for this service.
type EmailQueuedEvent struct {
	To           string    `json:"to"`
	EmailSubject string    `json:"subject"`
	HTML         string    `json:"html,omitempty"`
	Text         string    `json:"text,omitempty"`
	QueuedAt     time.Time `json:"queued_at"`
}

func (e EmailQueuedEvent) Subject() string {
	return messaging.EmailQueuedSubject
}

func (e EmailQueuedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
