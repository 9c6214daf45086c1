// Package client реализует Go-клиент API портала закупок.
package client

import (
	"sync"

	"tenderportal/internal/policy"
	"tenderportal/models"
)

// Session хранит токен и профиль вошедшего пользователя. Владелец сессии
// явно вызывает Init после входа и Clear при выходе; клиент сам очищает
// сессию, получив 401.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *models.User
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Init(token string, u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if u != nil {
		cp := *u
		s.user = &cp
	} else {
		s.user = nil
	}
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// Current возвращает токен и копию профиля; ok=false, если вход не выполнен.
func (s *Session) Current() (token string, u *models.User, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", nil, false
	}
	if s.user != nil {
		cp := *s.user
		u = &cp
	}
	return s.token, u, true
}

func (s *Session) setUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || u == nil {
		return
	}
	cp := *u
	s.user = &cp
}

// actor: текущий пользователь в терминах правил доступа.
func (s *Session) actor() *policy.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.user == nil {
		return nil
	}
	a := policy.ActorFromUser(s.user)
	return &a
}
