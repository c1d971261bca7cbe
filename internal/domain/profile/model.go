package profile

import (
	"errors"
	"github.com/burenotti/go_coach_backend/internal/domain"
	"strings"
	"time"
)

var (
	ErrProfileExists   = errors.New("profile already exists")
	ErrProfileNotFound = errors.New("profile not found")
)

const (
	TypeClient = "client"
	TypeCoach  = "coach"
)

type Profile interface {
	Type() string
	ID() string
	DisplayName() string
	Avatar() string
}

type Client struct {
	domain.Aggregate `diff:"-"`
	UserID           string     `diff:"-"`
	FirstName        string     `diff:"first_name"`
	LastName         string     `diff:"last_name"`
	BirthDate        *time.Time `diff:"birth_date"`
	AvatarURL        string     `diff:"avatar_url"`
}

func NewClient(
	userID string,
	firstName string,
	lastName string,
	birthDate *time.Time,
	avatarURL string,
) *Client {
	return &Client{
		UserID:    userID,
		FirstName: firstName,
		LastName:  lastName,
		BirthDate: birthDate,
		AvatarURL: avatarURL,
	}
}

func (c *Client) ID() string {
	return c.UserID
}

func (*Client) Type() string {
	return TypeClient
}

func (c *Client) DisplayName() string {
	return FullName(c.FirstName, c.LastName)
}

func (c *Client) Avatar() string {
	return c.AvatarURL
}

type Coach struct {
	domain.Aggregate `diff:"-"`
	UserID           string     `diff:"-"`
	FirstName        string     `diff:"first_name"`
	LastName         string     `diff:"last_name"`
	BirthDate        *time.Time `diff:"birth_date"`
	YearsExperience  int        `diff:"years_experience"`
	Bio              string     `diff:"bio"`
	AvatarURL        string     `diff:"avatar_url"`
}

func NewCoach(
	userID string,
	firstName string,
	lastName string,
	birthDate *time.Time,
	yearsExperience int,
	bio string,
	avatarURL string,
) *Coach {
	return &Coach{
		UserID:          userID,
		FirstName:       firstName,
		LastName:        lastName,
		BirthDate:       birthDate,
		YearsExperience: yearsExperience,
		Bio:             bio,
		AvatarURL:       avatarURL,
	}
}

func (c *Coach) ID() string {
	return c.UserID
}

func (*Coach) Type() string {
	return TypeCoach
}

func (c *Coach) DisplayName() string {
	return FullName(c.FirstName, c.LastName)
}

func (c *Coach) Avatar() string {
	return c.AvatarURL
}

// FullName joins the non-empty name parts, the way both profile kinds are
// shown to the other side of a connection.
func FullName(firstName, lastName string) string {
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}
