// Package session holds the identity of a logged-in customer and the state
// that belongs to one interaction, such as the last cart listing's numbering.
package session

import (
	"context"
	"errors"
	"time"

	"minishop/model"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is passed explicitly to every service call.
type Session struct {
	Token      string              `json:"token"`
	CustomerID int64               `json:"customer_id"`
	LoginID    string              `json:"login_id"`
	NickName   string              `json:"nickname"`
	Index      *model.DisplayIndex `json:"index,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

func New(customerID int64, loginID, nickName string) *Session {
	return &Session{
		Token:      uuid.NewString(),
		CustomerID: customerID,
		LoginID:    loginID,
		NickName:   nickName,
		CreatedAt:  time.Now().UTC(),
	}
}

// Store persists sessions between requests.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
