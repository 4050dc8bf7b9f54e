package store

import "time"

// Direction marks which way a message travelled: from the end user into the
// store, or from the agent UI out to the end user.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Contact mirrors one row of the shared contacts table. The same table is
// read and written by the agent UI, so field names follow the wire format.
type Contact struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	ContactInfo string    `json:"contact_info"`
	LastContact time.Time `json:"last_contact"`
}

// Key returns the contact's composite key parsed into its typed form.
func (c Contact) Key() ContactKey {
	return ParseContactKey(c.ContactInfo)
}

// Message mirrors one row of the shared messages table.
//
// IsSent doubles as the delivery-claim flag: incoming messages are created
// with it set (they are already "delivered" to the store), outgoing messages
// start unset and flip to true exactly once, when a delivery poller claims
// them for dispatch.
type Message struct {
	ID             string    `json:"id,omitempty"`
	ContactID      string    `json:"contact_id"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Direction      Direction `json:"direction,omitempty"`
	IsFromCustomer bool      `json:"is_from_customer"`
	IsAIResponse   bool      `json:"is_ai_response"`
	IsSent         bool      `json:"is_sent"`
}
