package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hostdesk/hosting-service/internal/domain"
	"github.com/hostdesk/hosting-service/internal/events"
	"github.com/hostdesk/hosting-service/internal/repository"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() Clock { return func() time.Time { return testNow } }

type memStore struct {
	mu      sync.Mutex
	seq     int
	plans   map[string]*domain.Plan
	tenants map[string]*domain.Tenant
	domains map[string]*domain.Domain
	tickets map[string]*domain.Ticket
	history []domain.TicketHistory
}

func newMemStore() *memStore {
	return &memStore{
		plans:   map[string]*domain.Plan{},
		tenants: map[string]*domain.Tenant{},
		domains: map[string]*domain.Domain{},
		tickets: map[string]*domain.Ticket{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

type planRepo struct{ *memStore }

func (r planRepo) Create(_ context.Context, p *domain.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = r.nextID("plan")
	}
	cp := *p
	r.plans[p.ID] = &cp
	return nil
}

func (r planRepo) GetByID(_ context.Context, id string) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (r planRepo) ListActive(_ context.Context) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Plan
	for _, p := range r.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type tenantRepo struct{ *memStore }

func (r tenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = r.nextID("tenant")
	}
	cp := *t
	r.tenants[t.ID] = &cp
	return nil
}

func (r tenantRepo) Update(_ context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *t
	r.tenants[t.ID] = &cp
	return nil
}

func (r tenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r tenantRepo) GetByEmail(_ context.Context, email string) (*domain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Email == email {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type domainRepo struct{ *memStore }

func (r domainRepo) Create(_ context.Context, d *domain.Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = r.nextID("domain")
	d.CreatedAt = testNow
	d.UpdatedAt = testNow
	cp := *d
	r.domains[d.ID] = &cp
	return nil
}

func (r domainRepo) Update(_ context.Context, d *domain.Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.domains[d.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *d
	r.domains[d.ID] = &cp
	return nil
}

func (r domainRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.domains[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.domains, id)
	return nil
}

func (r domainRepo) GetByID(_ context.Context, id string) (*domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.domains[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (r domainRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.domains {
		if d.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r domainRepo) byTenant(tenantID string) []domain.Domain {
	var out []domain.Domain
	for _, d := range r.domains {
		if d.TenantID == tenantID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r domainRepo) ListByTenant(_ context.Context, tenantID string, _, _ int) ([]domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byTenant(tenantID), nil
}

func (r domainRepo) CountByTenant(_ context.Context, tenantID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTenant(tenantID)), nil
}

func (r domainRepo) ListExpiringBetween(_ context.Context, tenantID string, from, to time.Time) ([]domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Domain
	for _, d := range r.byTenant(tenantID) {
		if d.ExpiresAt != nil && d.ExpiresAt.After(from) && !d.ExpiresAt.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r domainRepo) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.domains {
		if d.ExpiresAt != nil && d.ExpiresAt.Before(now) && d.Status != domain.DomainStatusExpired {
			d.Status = domain.DomainStatusExpired
			n++
		}
	}
	return n, nil
}

type ticketRepo struct{ *memStore }

func (r ticketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID("ticket")
	if t.CreatedAt.IsZero() {
		t.CreatedAt = testNow
	}
	t.UpdatedAt = t.CreatedAt
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r ticketRepo) Update(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r ticketRepo) GetByExternalKey(_ context.Context, key string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.ExternalKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r ticketRepo) ListWithFilter(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if f.TenantID != nil && t.TenantID != *f.TenantID {
			continue
		}
		if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
			continue
		}
		unresolved := t.ResolvedAt == nil && !t.IsClosed()
		if (f.UnresolvedOnly || f.OverdueAt != nil) && !unresolved {
			continue
		}
		if f.OverdueAt != nil {
			hours, ok := f.Windows[t.Priority]
			if !ok {
				hours = 24
			}
			if !t.CreatedAt.Add(time.Duration(hours) * time.Hour).Before(*f.OverdueAt) {
				continue
			}
		}
		if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type historyRepo struct{ *memStore }

func (r historyRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.ID = r.nextID("history")
	h.CreatedAt = testNow
	r.history = append(r.history, *h)
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID string, _ int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range r.history {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) SubscribeAll(events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}
