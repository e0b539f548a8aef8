// Package session keeps the slot-filling state of a chat conversation: the
// barber, date and time a customer has mentioned so far.
package session

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidID = errors.New("session id must not be empty")

type Session struct {
	Intent string `json:"intent,omitempty"`
	Barber string `json:"barber,omitempty"`
	Date   string `json:"date,omitempty"`
	Time   string `json:"time,omitempty"`
}

// Merge overwrites the slots that are non-empty in update.
func (s Session) Merge(update Session) Session {
	if update.Intent != "" {
		s.Intent = update.Intent
	}
	if update.Barber != "" {
		s.Barber = update.Barber
	}
	if update.Date != "" {
		s.Date = update.Date
	}
	if update.Time != "" {
		s.Time = update.Time
	}
	return s
}

// Store maps session ids to sessions. Get on an unknown id returns an empty
// Session and no error.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, id string, s Session) error
	Delete(ctx context.Context, id string) error
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	return nil
}
