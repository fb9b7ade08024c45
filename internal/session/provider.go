package session

import (
	"context"
	"errors"
	"sync"
)

var ErrInvalidUser = errors.New("user id is required")

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Listener receives the signed-in user after every transition, or nil after
// a sign-out.
type Listener func(ctx context.Context, u *User)

// Provider holds the signed-in user of a single client.
type Provider struct {
	mu        sync.Mutex
	current   *User
	listeners []Listener
}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Current() *User {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return nil
	}
	u := *p.current
	return &u
}

func (p *Provider) Subscribe(fn Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// SignIn makes u the current user. Listeners run on the caller's goroutine
// and have returned by the time SignIn does. Switching straight from one user
// to another is delivered as a sign-out followed by a sign-in.
func (p *Provider) SignIn(ctx context.Context, u User) error {
	if u.ID == "" {
		return ErrInvalidUser
	}

	p.mu.Lock()
	prev := p.current
	if prev != nil && prev.ID == u.ID {
		p.current.Email = u.Email
		p.mu.Unlock()
		return nil
	}
	next := u
	p.current = &next
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	if prev != nil {
		notify(ctx, listeners, nil)
	}
	signedIn := u
	notify(ctx, listeners, &signedIn)
	return nil
}

func (p *Provider) SignOut(ctx context.Context) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	p.current = nil
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	notify(ctx, listeners, nil)
}

func notify(ctx context.Context, listeners []Listener, u *User) {
	for _, fn := range listeners {
		fn(ctx, u)
	}
}
