package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"outreach_automation/internal/domain/campaign"
	"outreach_automation/internal/domain/delivery"
	"outreach_automation/internal/domain/lead"
	idb "outreach_automation/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeStore is a shared in-memory backend implementing the campaign, lead and
// receipt repositories with the same semantics as the Postgres versions,
// including the transactional counter bump in CommitSend.
type fakeStore struct {
	mu            sync.Mutex
	campaigns     map[string]*campaign.Campaign
	leads         map[string]*lead.Lead
	campaignLeads map[string]*lead.CampaignLead
	receipts      map[string]time.Time // "campaignLeadID:slot" -> sentAt

	failListLeads map[string]error // campaignID -> error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns:     make(map[string]*campaign.Campaign),
		leads:         make(map[string]*lead.Lead),
		campaignLeads: make(map[string]*lead.CampaignLead),
		receipts:      make(map[string]time.Time),
		failListLeads: make(map[string]error),
	}
}

func (f *fakeStore) addCampaign(c *campaign.Campaign) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.campaigns[c.ID] = &cp
}

func (f *fakeStore) addLead(id, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[id] = &lead.Lead{ID: id, Email: email}
}

func (f *fakeStore) addCampaignLead(cl *lead.CampaignLead) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cl
	f.campaignLeads[cl.ID] = &cp
}

func receiptKey(campaignLeadID string, slot int) string {
	return fmt.Sprintf("%s:%d", campaignLeadID, slot)
}

// campaign.Repository

func (f *fakeStore) GetByID(_ context.Context, id string) (*campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, idb.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListDue(_ context.Context, now time.Time) ([]*campaign.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*campaign.Campaign
	for _, c := range f.campaigns {
		if c.Status == campaign.StatusActive && !c.StartDateUTC.After(now) {
			cp := *c
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status campaign.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return idb.ErrCampaignNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeStore) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.campaigns), nil
}

// lead.Repository

func (f *fakeStore) CreateLead(_ context.Context, l *lead.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.leads[l.ID] = &cp
	return nil
}

func (f *fakeStore) GetLead(_ context.Context, id string) (*lead.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[id]
	if !ok {
		return nil, idb.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) GetLeadByEmail(_ context.Context, email string) (*lead.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.Email == email {
			cp := *l
			return &cp, nil
		}
	}
	return nil, idb.ErrLeadNotFound
}

func (f *fakeStore) CreateCampaignLead(_ context.Context, cl *lead.CampaignLead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cl
	f.campaignLeads[cl.ID] = &cp
	return nil
}

func (f *fakeStore) GetCampaignLead(_ context.Context, id string) (*lead.CampaignLead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cl, ok := f.campaignLeads[id]
	if !ok {
		return nil, idb.ErrCampaignLeadNotFound
	}
	cp := *cl
	return &cp, nil
}

func (f *fakeStore) FindCampaignLead(_ context.Context, campaignID, leadID string) (*lead.CampaignLead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cl := range f.campaignLeads {
		if cl.CampaignID == campaignID && cl.LeadID == leadID {
			cp := *cl
			return &cp, nil
		}
	}
	return nil, idb.ErrCampaignLeadNotFound
}

func (f *fakeStore) ListByCampaign(_ context.Context, campaignID string) ([]*lead.CampaignLead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failListLeads[campaignID]; err != nil {
		return nil, err
	}
	var out []*lead.CampaignLead
	for _, cl := range f.campaignLeads {
		if cl.CampaignID == campaignID {
			cp := *cl
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CountLeads(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.leads), nil
}

// delivery.ReceiptRepository

func (f *fakeStore) CountSentBetween(_ context.Context, campaignID string, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for key, sentAt := range f.receipts {
		cl := f.campaignLeadByKey(key)
		if cl == nil || cl.CampaignID != campaignID {
			continue
		}
		if !sentAt.Before(from) && sentAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) campaignLeadByKey(key string) *lead.CampaignLead {
	for id, cl := range f.campaignLeads {
		if len(key) > len(id) && key[:len(id)] == id && key[len(id)] == ':' {
			return cl
		}
	}
	return nil
}

func (f *fakeStore) Exists(_ context.Context, campaignLeadID string, slot int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.receipts[receiptKey(campaignLeadID, slot)]
	return ok, nil
}

func (f *fakeStore) CommitSend(_ context.Context, campaignLeadID string, slot int, sentAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := receiptKey(campaignLeadID, slot)
	if _, exists := f.receipts[key]; exists {
		return false, nil
	}
	cl, ok := f.campaignLeads[campaignLeadID]
	if !ok {
		return false, idb.ErrCampaignLeadNotFound
	}
	f.receipts[key] = sentAt
	cl.EmailsSentCount++
	cl.LastSentAt = sql.NullTime{Time: sentAt, Valid: true}
	return true, nil
}

func (f *fakeStore) CountReceipts(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.receipts), nil
}

// fakeQueue records enqueued jobs and deduplicates pending ids like the real
// queues do.
type fakeQueue struct {
	mu      sync.Mutex
	pending map[string]struct{}
	jobs    []delivery.DispatchJob
	failErr error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{pending: make(map[string]struct{})}
}

func (q *fakeQueue) Enqueue(_ context.Context, job delivery.DispatchJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failErr != nil {
		return q.failErr
	}
	if _, exists := q.pending[job.ID()]; exists {
		return nil
	}
	q.pending[job.ID()] = struct{}{}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Consume(ctx context.Context, _ delivery.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

// drain acknowledges every pending job, as if workers had processed them.
func (q *fakeQueue) drain() []delivery.DispatchJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.jobs
	q.jobs = nil
	q.pending = make(map[string]struct{})
	return out
}

func (q *fakeQueue) jobIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		ids = append(ids, j.ID())
	}
	return ids
}

// fakeResolver returns a canned draft per (campaign, slot).
type fakeResolver struct {
	drafts map[string]*delivery.Draft // "campaignID:slot"
	err    error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{drafts: make(map[string]*delivery.Draft)}
}

func (r *fakeResolver) setDraft(campaignID string, slot int, approved bool) {
	r.drafts[fmt.Sprintf("%s:%d", campaignID, slot)] = &delivery.Draft{
		ID:            fmt.Sprintf("draft-%s-%d", campaignID, slot),
		CampaignID:    campaignID,
		ScheduledSlot: slot,
		Subject:       "Quick question",
		BodyHTML:      "<p>Hi there,</p>",
		Approved:      approved,
	}
}

func (r *fakeResolver) ResolveOrGenerate(_ context.Context, campaignID string, slot int, _ string) (*delivery.Draft, error) {
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.drafts[fmt.Sprintf("%s:%d", campaignID, slot)]
	if !ok {
		return nil, fmt.Errorf("no draft for campaign %s slot %d", campaignID, slot)
	}
	return d, nil
}

// fakeMailer records sends.
type fakeMailer struct {
	mu    sync.Mutex
	sends []string // recipient addresses
	err   error
}

func (m *fakeMailer) Send(_ context.Context, to, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sends = append(m.sends, to)
	return fmt.Sprintf("msg-%d", len(m.sends)), nil
}

// fakeNotifier records ops events.
type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	dead      []string
}

func (n *fakeNotifier) CampaignCompleted(campaignID, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, campaignID)
}

func (n *fakeNotifier) DeliveryDeadLettered(job delivery.DispatchJob, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dead = append(n.dead, job.ID())
}
