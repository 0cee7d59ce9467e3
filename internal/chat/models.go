// Package chat persists multi-tenant chat sessions and messages over a
// partitioned document store.
//
// Documents live under hierarchical partition keys derived from
// (tenant, user, session), so a session and its messages are co-located and
// can be written or deleted as one transactional batch.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Document type discriminators stored in the "type" field.
const (
	TypeSession = "Session"
	TypeMessage = "Message"
)

// Session is one chat conversation owned by a (tenant, user) pair.
// The document id equals the session id.
type Session struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	TenantID  string `json:"tenantId"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
}

// NewSession creates a session with a generated id.
func NewSession(tenantID, userID, name string) Session {
	id := uuid.NewString()
	return Session{
		ID:        id,
		Type:      TypeSession,
		SessionID: id,
		TenantID:  tenantID,
		UserID:    userID,
		Name:      name,
	}
}

// Message is a single chat turn within a session. It shares the parent
// session's partition scope.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	TenantID  string    `json:"tenantId"`
	UserID    string    `json:"userId"`
	TimeStamp time.Time `json:"timeStamp"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Tokens    int       `json:"tokens"`
}

// NewMessage creates a message bound to a session. The timestamp is assigned
// by the store on insert.
func NewMessage(tenantID, userID, sessionID, sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      TypeMessage,
		SessionID: sessionID,
		TenantID:  tenantID,
		UserID:    userID,
		Sender:    sender,
		Text:      text,
	}
}

// PartitionedDocument is the union of document types that may share one
// transactional batch. SessionRef is the session-scoping field every batch
// item must agree on.
type PartitionedDocument interface {
	// DocumentID returns the document id.
	DocumentID() string

	// SessionRef returns the session id that scopes the document's
	// partition.
	SessionRef() string
}

// DocumentID implements PartitionedDocument.
func (s Session) DocumentID() string { return s.ID }

// SessionRef implements PartitionedDocument.
func (s Session) SessionRef() string { return s.SessionID }

// DocumentID implements PartitionedDocument.
func (m Message) DocumentID() string { return m.ID }

// SessionRef implements PartitionedDocument.
func (m Message) SessionRef() string { return m.SessionID }
