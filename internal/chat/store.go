package chat

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/semstore/internal/docstore"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

var chatTracer = otel.Tracer("semstore.chat")

// Store persists sessions and messages. It holds a shared container handle
// and is safe for concurrent use.
type Store struct {
	container docstore.Container
	logger    *zap.Logger
}

// NewStore creates a chat store over the given container.
func NewStore(container docstore.Container, logger *zap.Logger) (*Store, error) {
	if container == nil {
		return nil, fmt.Errorf("%w: container is required", docstore.ErrInvalidArgument)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{container: container, logger: logger}, nil
}

// DeriveScope builds the hierarchical partition scope for a chat document.
//
// All three ids present yields a full (tenant, user, session) scope. With an
// empty session id the scope degrades to (tenant, user), which prefixes every
// session partition of that user and is used to list sessions. With an empty
// user id the scope degrades to (tenant) alone. An empty tenant id is not a
// supported scope and fails fast.
func DeriveScope(tenantID, userID, sessionID string) (docstore.PartitionKey, error) {
	if tenantID == "" {
		return docstore.PartitionKey{}, fmt.Errorf("%w: tenant id is required", docstore.ErrInvalidArgument)
	}
	b := docstore.NewPartitionKeyBuilder().Append(tenantID)
	if userID != "" {
		b.Append(userID)
		if sessionID != "" {
			b.Append(sessionID)
		}
	}
	return b.Build()
}

// InsertSession creates a new session document. Fails with ErrConflict if a
// session with the same id already exists in the scope.
func (s *Store) InsertSession(ctx context.Context, tenantID, userID string, session Session) (Session, error) {
	ctx, span := chatTracer.Start(ctx, "chat.InsertSession")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("session_id", session.SessionID),
	)

	scope, err := DeriveScope(tenantID, userID, session.SessionID)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}
	session.Type = TypeSession

	if err := s.container.CreateItem(ctx, scope, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Session{}, fmt.Errorf("inserting session %q: %w", session.ID, err)
	}

	s.logger.Debug("inserted session",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", userID),
		zap.String("session_id", session.SessionID),
	)
	return session, nil
}

// InsertMessage creates a new message document. The stored copy carries a
// server-assigned UTC timestamp.
func (s *Store) InsertMessage(ctx context.Context, tenantID, userID string, message Message) (Message, error) {
	ctx, span := chatTracer.Start(ctx, "chat.InsertMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("session_id", message.SessionID),
	)

	scope, err := DeriveScope(tenantID, userID, message.SessionID)
	if err != nil {
		span.RecordError(err)
		return Message{}, err
	}
	message.Type = TypeMessage
	message.TimeStamp = timeNow().UTC()

	if err := s.container.CreateItem(ctx, scope, message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Message{}, fmt.Errorf("inserting message %q: %w", message.ID, err)
	}
	return message, nil
}

// GetSessions lists the distinct sessions of a (tenant, user) pair by
// ranging over every session partition under the two-level scope.
func (s *Store) GetSessions(ctx context.Context, tenantID, userID string) ([]Session, error) {
	ctx, span := chatTracer.Start(ctx, "chat.GetSessions")
	defer span.End()
	span.SetAttributes(attribute.String("tenant_id", tenantID))

	scope, err := DeriveScope(tenantID, userID, "")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	it, err := s.container.Query(ctx, docstore.Query{
		Partition:   scope,
		PrefixScope: true,
		Filters:     map[string]any{"type": TypeSession},
		Distinct:    true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying sessions: %w", err)
	}

	sessions, err := docstore.All[Session](ctx, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("draining sessions: %w", err)
	}

	span.SetAttributes(attribute.Int("session_count", len(sessions)))
	return sessions, nil
}

// GetSessionMessages lists every message of one session, draining all
// result pages.
func (s *Store) GetSessionMessages(ctx context.Context, tenantID, userID, sessionID string) ([]Message, error) {
	ctx, span := chatTracer.Start(ctx, "chat.GetSessionMessages")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("session_id", sessionID),
	)

	scope, err := DeriveScope(tenantID, userID, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	it, err := s.container.Query(ctx, docstore.Query{
		Partition: scope,
		Filters: map[string]any{
			"sessionId": sessionID,
			"type":      TypeMessage,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying messages: %w", err)
	}

	messages, err := docstore.All[Message](ctx, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("draining messages: %w", err)
	}

	span.SetAttributes(attribute.Int("message_count", len(messages)))
	return messages, nil
}

// UpdateSession replaces an existing session document in full. Fails with
// ErrNotFound if the session is absent.
func (s *Store) UpdateSession(ctx context.Context, tenantID, userID string, session Session) (Session, error) {
	ctx, span := chatTracer.Start(ctx, "chat.UpdateSession")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("session_id", session.SessionID),
	)

	scope, err := DeriveScope(tenantID, userID, session.SessionID)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}
	session.Type = TypeSession

	if err := s.container.ReplaceItem(ctx, scope, session.ID, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Session{}, fmt.Errorf("updating session %q: %w", session.ID, err)
	}
	return session, nil
}

// GetSession point-reads one session. Fails with ErrNotFound if absent.
func (s *Store) GetSession(ctx context.Context, tenantID, userID, sessionID string) (Session, error) {
	ctx, span := chatTracer.Start(ctx, "chat.GetSession")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("session_id", sessionID),
	)

	scope, err := DeriveScope(tenantID, userID, sessionID)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}

	var session Session
	if err := s.container.ReadItem(ctx, scope, sessionID, &session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Session{}, fmt.Errorf("reading session %q: %w", sessionID, err)
	}
	return session, nil
}

// UpsertBatch writes a session and its messages as one transactional batch,
// so they become visible together or not at all. Every item must reference
// the same session; a mixed batch is rejected before any store call.
func (s *Store) UpsertBatch(ctx context.Context, tenantID, userID string, items ...PartitionedDocument) error {
	ctx, span := chatTracer.Start(ctx, "chat.UpsertBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.Int("item_count", len(items)),
	)

	if len(items) == 0 {
		return fmt.Errorf("%w: batch requires at least one item", docstore.ErrInvalidArgument)
	}
	sessionID := items[0].SessionRef()
	for _, item := range items {
		if item.SessionRef() != sessionID {
			err := fmt.Errorf("%w: all batch items must reference the same session", docstore.ErrInvalidArgument)
			span.RecordError(err)
			return err
		}
	}

	scope, err := DeriveScope(tenantID, userID, sessionID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	batch := s.container.NewBatch(scope)
	for _, item := range items {
		batch.Upsert(item)
	}
	if err := batch.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("executing upsert batch: %w", err)
	}

	s.logger.Debug("upserted session batch",
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sessionID),
		zap.Int("items", len(items)),
	)
	return nil
}

// sessionDocumentID is the id projection used by the delete discovery query.
type sessionDocumentID struct {
	ID string `json:"id"`
}

// DeleteSessionAndMessages removes a session and every message under it.
//
// Discovery and deletion are two phases: a fully drained id query over the
// session's partition, then one atomic delete batch. A message inserted
// between the phases survives the delete; the store offers no delete-by-filter
// primitive, so that window is accepted rather than guarded.
func (s *Store) DeleteSessionAndMessages(ctx context.Context, tenantID, userID, sessionID string) error {
	ctx, span := chatTracer.Start(ctx, "chat.DeleteSessionAndMessages")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("session_id", sessionID),
	)

	scope, err := DeriveScope(tenantID, userID, sessionID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	it, err := s.container.Query(ctx, docstore.Query{
		Partition:  scope,
		Filters:    map[string]any{"sessionId": sessionID},
		Projection: []string{"id"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("discovering session documents: %w", err)
	}

	ids, err := docstore.All[sessionDocumentID](ctx, it)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("draining session documents: %w", err)
	}
	if len(ids) == 0 {
		span.SetAttributes(attribute.Int("deleted_count", 0))
		return nil
	}

	batch := s.container.NewBatch(scope)
	for _, doc := range ids {
		batch.Delete(doc.ID)
	}
	if err := batch.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("executing delete batch: %w", err)
	}

	span.SetAttributes(attribute.Int("deleted_count", len(ids)))
	s.logger.Info("deleted session and messages",
		zap.String("tenant_id", tenantID),
		zap.String("session_id", sessionID),
		zap.Int("documents", len(ids)),
	)
	return nil
}
