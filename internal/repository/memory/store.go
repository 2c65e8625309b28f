// Package memory holds map-backed stores with the same contracts as the
// Postgres repositories. Services and handlers are tested against it.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"freelance-market/internal/model"
)

// Store keeps every table behind one mutex so cross-table writes such as
// assigning a seller and enqueueing its notification stay atomic.
type Store struct {
	mu           sync.Mutex
	users        map[string]model.User
	projects     map[string]model.Project
	bids         []model.Bid
	deliverables []model.Deliverable
	outbox       []model.OutboxMessage
	audit        []model.AuditEntry
}

func New() *Store {
	return &Store{
		users:    make(map[string]model.User),
		projects: make(map[string]model.Project),
	}
}

func (s *Store) Users() *Users               { return &Users{s} }
func (s *Store) Projects() *Projects         { return &Projects{s} }
func (s *Store) Bids() *Bids                 { return &Bids{s} }
func (s *Store) Deliverables() *Deliverables { return &Deliverables{s} }
func (s *Store) Outbox() *Outbox             { return &Outbox{s} }
func (s *Store) Audit() *Audit               { return &Audit{s} }

// OutboxMessages returns a copy of every queued message, sent or not.
func (s *Store) OutboxMessages() []model.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxMessage(nil), s.outbox...)
}

type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user model.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, existing := range u.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return model.ErrEmailTaken
		}
	}
	u.s.users[user.ID] = user
	return nil
}

func (u *Users) FindByID(_ context.Context, id string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for _, user := range u.s.users {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (u *Users) SetRefreshToken(_ context.Context, userID string, token *string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	if token != nil {
		t := *token
		token = &t
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()
	u.s.users[userID] = user
	return nil
}

func (u *Users) RotateRefreshToken(_ context.Context, userID string, current string, next string) (bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	user, ok := u.s.users[userID]
	if !ok || user.RefreshToken == nil || *user.RefreshToken != current {
		return false, nil
	}
	user.RefreshToken = &next
	user.UpdatedAt = time.Now().UTC()
	u.s.users[userID] = user
	return true, nil
}

type Projects struct{ s *Store }

func (p *Projects) Create(_ context.Context, project model.Project) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.projects[project.ID] = project
	return nil
}

func (p *Projects) FindByID(_ context.Context, id string) (model.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	project, ok := p.s.projects[id]
	if !ok {
		return model.Project{}, model.ErrProjectNotFound
	}
	return project, nil
}

func (p *Projects) ListByBuyer(_ context.Context, buyerID string) ([]model.Project, error) {
	return p.filter(func(pr model.Project) bool { return pr.BuyerID == buyerID }), nil
}

func (p *Projects) ListBySeller(_ context.Context, sellerID string) ([]model.Project, error) {
	return p.filter(func(pr model.Project) bool { return pr.AssignedTo(sellerID) }), nil
}

func (p *Projects) ListOpen(_ context.Context) ([]model.Project, error) {
	return p.filter(func(pr model.Project) bool {
		return pr.SellerID == nil && pr.Status == model.StatusPending
	}), nil
}

func (p *Projects) Assign(_ context.Context, projectID string, sellerID string, from model.ProjectStatus, to model.ProjectStatus, notification model.OutboxMessage) (model.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	project, err := p.s.conditional(projectID, from)
	if err != nil {
		return model.Project{}, err
	}
	seller := sellerID
	project.SellerID = &seller
	project.Status = to
	project.UpdatedAt = time.Now().UTC()
	p.s.projects[projectID] = project
	p.s.outbox = append(p.s.outbox, notification)
	return project, nil
}

func (p *Projects) UpdateStatus(_ context.Context, projectID string, from model.ProjectStatus, to model.ProjectStatus) (model.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	project, err := p.s.conditional(projectID, from)
	if err != nil {
		return model.Project{}, err
	}
	project.Status = to
	project.UpdatedAt = time.Now().UTC()
	p.s.projects[projectID] = project
	return project, nil
}

func (p *Projects) Delete(_ context.Context, projectID string, expected model.ProjectStatus) (model.Project, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	project, err := p.s.conditional(projectID, expected)
	if err != nil {
		return model.Project{}, err
	}
	delete(p.s.projects, projectID)

	bids := p.s.bids[:0]
	for _, b := range p.s.bids {
		if b.ProjectID != projectID {
			bids = append(bids, b)
		}
	}
	p.s.bids = bids

	deliverables := p.s.deliverables[:0]
	for _, d := range p.s.deliverables {
		if d.ProjectID != projectID {
			deliverables = append(deliverables, d)
		}
	}
	p.s.deliverables = deliverables
	return project, nil
}

func (p *Projects) filter(keep func(model.Project) bool) []model.Project {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	out := make([]model.Project, 0)
	for _, project := range p.s.projects {
		if keep(project) {
			out = append(out, project)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// conditional must be called with mu held.
func (s *Store) conditional(projectID string, expected model.ProjectStatus) (model.Project, error) {
	project, ok := s.projects[projectID]
	if !ok {
		return model.Project{}, model.ErrProjectNotFound
	}
	if project.Status != expected {
		return model.Project{}, model.ErrInvalidTransition
	}
	return project, nil
}

type Bids struct{ s *Store }

func (b *Bids) Create(_ context.Context, bid model.Bid) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for _, existing := range b.s.bids {
		if existing.ProjectID == bid.ProjectID && existing.SellerID == bid.SellerID {
			return model.ErrBidAlreadyPlaced
		}
	}
	b.s.bids = append(b.s.bids, bid)
	return nil
}

func (b *Bids) Exists(_ context.Context, projectID string, sellerID string) (bool, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for _, existing := range b.s.bids {
		if existing.ProjectID == projectID && existing.SellerID == sellerID {
			return true, nil
		}
	}
	return false, nil
}

func (b *Bids) ListByProject(_ context.Context, projectID string) ([]model.Bid, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	out := make([]model.Bid, 0)
	for _, bid := range b.s.bids {
		if bid.ProjectID == projectID {
			out = append(out, bid)
		}
	}
	return out, nil
}

func (b *Bids) ListBySeller(_ context.Context, sellerID string) ([]model.SellerBid, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	out := make([]model.SellerBid, 0)
	for i := len(b.s.bids) - 1; i >= 0; i-- {
		bid := b.s.bids[i]
		if bid.SellerID != sellerID {
			continue
		}
		out = append(out, model.SellerBid{Bid: bid, Project: b.s.projects[bid.ProjectID]})
	}
	return out, nil
}

type Deliverables struct{ s *Store }

func (d *Deliverables) Create(_ context.Context, deliverable model.Deliverable) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.deliverables = append(d.s.deliverables, deliverable)
	return nil
}

func (d *Deliverables) LatestByProject(_ context.Context, projectID string) (model.Deliverable, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	for i := len(d.s.deliverables) - 1; i >= 0; i-- {
		if d.s.deliverables[i].ProjectID == projectID {
			return d.s.deliverables[i], nil
		}
	}
	return model.Deliverable{}, model.ErrDeliverableNotFound
}

type Outbox struct{ s *Store }

// Enqueue adds a message outside of any project write.
func (o *Outbox) Enqueue(m model.OutboxMessage) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.outbox = append(o.s.outbox, m)
}

func (o *Outbox) ClaimDue(_ context.Context, now time.Time, limit int, lease time.Duration) ([]model.OutboxMessage, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	out := make([]model.OutboxMessage, 0)
	for i := range o.s.outbox {
		if len(out) >= limit {
			break
		}
		m := &o.s.outbox[i]
		if m.SentAt != nil || m.DeadAt != nil || m.NextAttemptAt.After(now) {
			continue
		}
		claimed := *m
		m.NextAttemptAt = now.Add(lease)
		out = append(out, claimed)
	}
	return out, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string, at time.Time) error {
	o.update(id, func(m *model.OutboxMessage) {
		m.Attempts++
		m.SentAt = &at
		m.LastError = ""
	})
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, attempts int, nextAttemptAt time.Time, errText string) error {
	o.update(id, func(m *model.OutboxMessage) {
		m.Attempts = attempts
		m.NextAttemptAt = nextAttemptAt
		m.LastError = errText
	})
	return nil
}

func (o *Outbox) MarkDead(_ context.Context, id string, attempts int, at time.Time, errText string) error {
	o.update(id, func(m *model.OutboxMessage) {
		m.Attempts = attempts
		m.DeadAt = &at
		m.LastError = errText
	})
	return nil
}

func (o *Outbox) update(id string, fn func(*model.OutboxMessage)) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	for i := range o.s.outbox {
		if o.s.outbox[i].ID == id {
			fn(&o.s.outbox[i])
			return
		}
	}
}

type Audit struct{ s *Store }

func (a *Audit) Log(_ context.Context, entry model.AuditEntry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.audit = append(a.s.audit, entry)
	return nil
}

func (a *Audit) ListByResource(_ context.Context, resource string, limit int) ([]model.AuditEntry, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	out := make([]model.AuditEntry, 0)
	for i := len(a.s.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if a.s.audit[i].Resource == resource {
			out = append(out, a.s.audit[i])
		}
	}
	return out, nil
}
