package connection

import (
	"errors"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"time"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionExists   = errors.New("connection already exists")
	ErrAlreadyConnected   = errors.New("already connected to this coach")
	ErrRequestPending     = errors.New("connection request already pending")
	ErrSelfConnection     = errors.New("cannot connect to yourself")
	ErrAlreadyResponded   = errors.New("connection request already responded")
	ErrForbidden          = errors.New("not a party to this connection")
)

type ConnectionID string
type CoachID string
type ClientID string

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

const (
	EventRequested    = "connection.requested"
	EventAccepted     = "connection.accepted"
	EventDeclined     = "connection.declined"
	EventDisconnected = "connection.disconnected"
)

type Connection struct {
	domain.Aggregate `diff:"-"`
	ConnectionID     ConnectionID `diff:"-"`
	CoachID          CoachID      `diff:"-"`
	ClientID         ClientID     `diff:"-"`
	Status           Status       `diff:"status"`
	RequestedAt      time.Time    `diff:"-"`
	RespondedAt      *time.Time   `diff:"responded_at"`
}

// Request opens a pending connection between a client and the coach who
// owns the redeemed invite code. existing is the pair's current
// non-declined connection, if any.
func Request(
	id ConnectionID,
	coachID CoachID,
	clientID ClientID,
	existing *Connection,
	now time.Time,
) (*Connection, error) {
	if string(coachID) == string(clientID) {
		return nil, ErrSelfConnection
	}

	if existing != nil {
		if err := existing.RequestConflict(); err != nil {
			return nil, err
		}
	}

	c := &Connection{
		ConnectionID: id,
		CoachID:      coachID,
		ClientID:     clientID,
		Status:       StatusPending,
		RequestedAt:  now,
	}
	c.push(EventRequested, now)
	return c, nil
}

// RequestConflict reports why c stops its pair from opening a new request,
// or nil when it does not.
func (c *Connection) RequestConflict() error {
	switch c.Status {
	case StatusAccepted:
		return ErrAlreadyConnected
	case StatusPending:
		return ErrRequestPending
	default:
		return nil
	}
}

// Respond resolves a pending request. Only the coach of the connection may
// respond; anyone else is told the connection does not exist.
func (c *Connection) Respond(coachID CoachID, accept bool, now time.Time) error {
	if c.CoachID != coachID {
		return ErrConnectionNotFound
	}

	if c.Status != StatusPending {
		return ErrAlreadyResponded
	}

	respondedAt := now
	c.RespondedAt = &respondedAt

	if accept {
		c.Status = StatusAccepted
		c.push(EventAccepted, now)
	} else {
		c.Status = StatusDeclined
		c.push(EventDeclined, now)
	}
	return nil
}

// Disconnect checks that userID may remove the connection. The caller
// deletes the record when this returns nil.
func (c *Connection) Disconnect(userID string, now time.Time) error {
	if _, ok := c.RoleOf(userID); !ok {
		return ErrForbidden
	}

	if c.Status != StatusAccepted {
		return ErrConnectionNotFound
	}

	c.push(EventDisconnected, now)
	return nil
}

func (c *Connection) RoleOf(userID string) (Role, bool) {
	switch userID {
	case string(c.CoachID):
		return RoleCoach, true
	case string(c.ClientID):
		return RoleClient, true
	default:
		return "", false
	}
}

// Counterpart returns the user id and role of the other side for a caller
// holding role.
func (c *Connection) Counterpart(role Role) (string, Role) {
	if role == RoleCoach {
		return string(c.ClientID), RoleClient
	}
	return string(c.CoachID), RoleCoach
}

func (c *Connection) push(kind string, at time.Time) {
	c.PushEvent(StatusEvent{
		Kind:         kind,
		At:           at,
		ConnectionID: c.ConnectionID,
		CoachID:      c.CoachID,
		ClientID:     c.ClientID,
	})
}

type StatusEvent struct {
	Kind         string
	At           time.Time
	ConnectionID ConnectionID
	CoachID      CoachID
	ClientID     ClientID
}

func (e StatusEvent) Type() string {
	return e.Kind
}

func (e StatusEvent) PublishedAt() time.Time {
	return e.At
}

// Party is the other side of a connection as shown to the caller.
type Party struct {
	UserID    string
	Role      Role
	Name      string
	AvatarURL string
}

type Listing struct {
	Connection  *Connection
	Counterpart Party
}
