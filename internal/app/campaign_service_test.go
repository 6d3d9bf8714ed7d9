package app

import (
	"context"
	"testing"

	"outreach_automation/internal/domain/campaign"
	"outreach_automation/internal/domain/delivery"
	"outreach_automation/internal/domain/lead"
	idb "outreach_automation/internal/infra/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDraftStore struct {
	drafts map[string]*delivery.Draft // draft id -> draft
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{drafts: make(map[string]*delivery.Draft)}
}

func (s *fakeDraftStore) GetBySlot(_ context.Context, campaignID string, slot int) (*delivery.Draft, error) {
	for _, d := range s.drafts {
		if d.CampaignID == campaignID && d.ScheduledSlot == slot {
			return d, nil
		}
	}
	return nil, idb.ErrDraftNotFound
}

func (s *fakeDraftStore) Upsert(_ context.Context, d *delivery.Draft) error {
	s.drafts[d.ID] = d
	return nil
}

func (s *fakeDraftStore) ListByCampaign(_ context.Context, campaignID string) ([]*delivery.Draft, error) {
	var out []*delivery.Draft
	for _, d := range s.drafts {
		if d.CampaignID == campaignID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeDraftStore) Approve(_ context.Context, campaignID, draftID string) error {
	d, ok := s.drafts[draftID]
	if !ok || d.CampaignID != campaignID {
		return idb.ErrDraftNotFound
	}
	d.Approved = true
	return nil
}

func newCampaignFixture() (*fakeStore, *fakeDraftStore, *CampaignService) {
	store := newFakeStore()
	drafts := newFakeDraftStore()
	svc := NewCampaignService(store, store, store, drafts, testLogger())
	return store, drafts, svc
}

func TestChangeStatus(t *testing.T) {
	store, _, svc := newCampaignFixture()
	c := dailyCampaign("c1", 10)
	c.Status = campaign.StatusDraft
	store.addCampaign(c)

	got, err := svc.ChangeStatus(context.Background(), "c1", campaign.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusActive, got.Status)

	persisted, err := store.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusActive, persisted.Status)
}

func TestChangeStatusRejectsInvalidTransition(t *testing.T) {
	store, _, svc := newCampaignFixture()
	c := dailyCampaign("c1", 10)
	c.Status = campaign.StatusDraft
	store.addCampaign(c)

	_, err := svc.ChangeStatus(context.Background(), "c1", campaign.StatusPaused)
	require.ErrorIs(t, err, campaign.ErrInvalidTransition)

	persisted, err := store.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusDraft, persisted.Status)
}

func TestChangeStatusRejectsExternalCompletion(t *testing.T) {
	store, _, svc := newCampaignFixture()
	store.addCampaign(dailyCampaign("c1", 10))

	_, err := svc.ChangeStatus(context.Background(), "c1", campaign.StatusCompleted)
	require.ErrorIs(t, err, campaign.ErrInvalidTransition)

	persisted, err := store.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, campaign.StatusActive, persisted.Status, "only the scheduler may complete a campaign")
}

func TestChangeStatusRejectsTerminalCampaign(t *testing.T) {
	store, _, svc := newCampaignFixture()
	c := dailyCampaign("c1", 10)
	c.Status = campaign.StatusCancelled
	store.addCampaign(c)

	_, err := svc.ChangeStatus(context.Background(), "c1", campaign.StatusActive)
	require.ErrorIs(t, err, campaign.ErrTerminalState)
}

func TestChangeStatusUnknownCampaign(t *testing.T) {
	_, _, svc := newCampaignFixture()
	_, err := svc.ChangeStatus(context.Background(), "missing", campaign.StatusActive)
	require.ErrorIs(t, err, idb.ErrCampaignNotFound)
}

func TestApproveDraft(t *testing.T) {
	store, drafts, svc := newCampaignFixture()
	store.addCampaign(dailyCampaign("c1", 10))
	require.NoError(t, drafts.Upsert(context.Background(), &delivery.Draft{
		ID: "d1", CampaignID: "c1", ScheduledSlot: 0, Subject: "Hi",
	}))

	require.NoError(t, svc.ApproveDraft(context.Background(), "c1", "d1"))

	d, err := drafts.GetBySlot(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.True(t, d.Approved)
}

func TestApproveDraftWrongCampaign(t *testing.T) {
	store, drafts, svc := newCampaignFixture()
	store.addCampaign(dailyCampaign("c1", 10))
	store.addCampaign(dailyCampaign("c2", 10))
	require.NoError(t, drafts.Upsert(context.Background(), &delivery.Draft{
		ID: "d1", CampaignID: "c1", ScheduledSlot: 0,
	}))

	err := svc.ApproveDraft(context.Background(), "c2", "d1")
	require.ErrorIs(t, err, idb.ErrDraftNotFound)
}

func TestListDrafts(t *testing.T) {
	store, drafts, svc := newCampaignFixture()
	store.addCampaign(dailyCampaign("c1", 10))
	require.NoError(t, drafts.Upsert(context.Background(), &delivery.Draft{ID: "d1", CampaignID: "c1"}))
	require.NoError(t, drafts.Upsert(context.Background(), &delivery.Draft{ID: "d2", CampaignID: "other"}))

	got, err := svc.ListDrafts(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].ID)
}

func TestOverview(t *testing.T) {
	store, _, svc := newCampaignFixture()
	store.addCampaign(dailyCampaign("c1", 10))
	store.addLead("l1", "ada@example.com")
	store.addLead("l2", "grace@example.com")
	store.addCampaignLead(&lead.CampaignLead{ID: "cl1", CampaignID: "c1", LeadID: "l1"})
	_, err := store.CommitSend(context.Background(), "cl1", 0, testNow)
	require.NoError(t, err)

	stats, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Campaigns)
	assert.Equal(t, 2, stats.Leads)
	assert.Equal(t, 1, stats.SentEmails)
	assert.False(t, stats.GeneratedAt.IsZero())
}
