package redfish

import (
	"fmt"
)

var sessions = newRegistry("Session", map[string]func(*Resource) *Session{
	"#Session.v1_3_0.Session": func(r *Resource) *Session { return &Session{Resource: r} },
})

// Session is an authenticated Redfish session.
type Session struct {
	*Resource
	token string
}

// UserName returns the owner of the session.
func (s *Session) UserName() (string, error) {
	return s.stringField("UserName")
}

// Token returns the X-Auth-Token issued when the session was created. It is
// empty for sessions loaded from the collection.
func (s *Session) Token() string {
	return s.token
}

// Delete logs the session out.
func (s *Session) Delete() error {
	return s.delete()
}

var sessionServices = newRegistry("SessionService", map[string]func(*Resource) *SessionService{
	"#SessionService.v1_0_2.SessionService": func(r *Resource) *SessionService { return &SessionService{Resource: r} },
})

// SessionService lists and removes sessions.
type SessionService struct {
	*Resource
}

func (s *SessionService) Sessions() ([]*Session, error) {
	return sessions.collection(s.client, s.child("Sessions"))
}

// Session returns nil when no session has the given id.
func (s *SessionService) Session(id string) (*Session, error) {
	return sessions.lookup(s.client, s.child("Sessions/"+id))
}

func (s *SessionService) DeleteSession(id string) error {
	if _, err := s.client.Delete(s.child("Sessions/" + id)); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return s.Reload()
}
