package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"outreach_automation/internal/domain/delivery"
	"outreach_automation/internal/domain/lead"
	idb "outreach_automation/internal/infra/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeliveryFixture() (*fakeStore, *fakeResolver, *fakeMailer, *DeliveryService) {
	store := newFakeStore()
	resolver := newFakeResolver()
	mailer := &fakeMailer{}
	svc := NewDeliveryService(store, store, resolver, mailer, testLogger())
	svc.now = func() time.Time { return testNow }
	return store, resolver, mailer, svc
}

func deliveryJob() delivery.DispatchJob {
	return delivery.DispatchJob{CampaignID: "c1", CampaignLeadID: "cl1", ScheduledSlot: 0}
}

func seedEnrollment(store *fakeStore) {
	store.addLead("l1", "ada@example.com")
	store.addCampaignLead(&lead.CampaignLead{ID: "cl1", CampaignID: "c1", LeadID: "l1"})
}

func TestProcessJobSendsApprovedDraft(t *testing.T) {
	store, resolver, mailer, svc := newDeliveryFixture()
	seedEnrollment(store)
	resolver.setDraft("c1", 0, true)

	err := svc.ProcessJob(context.Background(), deliveryJob())
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, mailer.sends)

	cl, err := store.GetCampaignLead(context.Background(), "cl1")
	require.NoError(t, err)
	assert.Equal(t, 1, cl.EmailsSentCount)
	require.True(t, cl.LastSentAt.Valid)
	assert.Equal(t, testNow, cl.LastSentAt.Time)
}

func TestProcessJobRedeliveryIsIdempotent(t *testing.T) {
	store, resolver, mailer, svc := newDeliveryFixture()
	seedEnrollment(store)
	resolver.setDraft("c1", 0, true)

	// The queue is at-least-once, so the same job can arrive several times.
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.ProcessJob(context.Background(), deliveryJob()))
	}

	assert.Len(t, mailer.sends, 1, "redelivery must not send again")
	cl, err := store.GetCampaignLead(context.Background(), "cl1")
	require.NoError(t, err)
	assert.Equal(t, 1, cl.EmailsSentCount, "redelivery must not bump the counter")
}

func TestProcessJobDropsUnapprovedDraft(t *testing.T) {
	store, resolver, mailer, svc := newDeliveryFixture()
	seedEnrollment(store)
	resolver.setDraft("c1", 0, false)

	err := svc.ProcessJob(context.Background(), deliveryJob())
	require.NoError(t, err, "an unapproved draft acknowledges the job without sending")
	assert.Empty(t, mailer.sends)

	cl, err := store.GetCampaignLead(context.Background(), "cl1")
	require.NoError(t, err)
	assert.Equal(t, 0, cl.EmailsSentCount, "the slot stays open for a later pass")
}

func TestProcessJobMissingCampaignLeadIsPermanent(t *testing.T) {
	_, _, mailer, svc := newDeliveryFixture()

	err := svc.ProcessJob(context.Background(), deliveryJob())
	require.Error(t, err)
	assert.True(t, delivery.IsPermanent(err))
	assert.Empty(t, mailer.sends)
}

func TestProcessJobMissingCampaignIsPermanent(t *testing.T) {
	store, resolver, mailer, svc := newDeliveryFixture()
	seedEnrollment(store)
	// The resolver hits a deleted campaign while generating the draft.
	resolver.err = fmt.Errorf("failed to load campaign for draft generation: %w", idb.ErrCampaignNotFound)

	err := svc.ProcessJob(context.Background(), deliveryJob())
	require.Error(t, err)
	assert.True(t, delivery.IsPermanent(err), "a vanished campaign must be dropped, not retried")
	assert.Empty(t, mailer.sends)
}

func TestProcessJobMissingLeadIsPermanent(t *testing.T) {
	store, resolver, mailer, svc := newDeliveryFixture()
	store.addCampaignLead(&lead.CampaignLead{ID: "cl1", CampaignID: "c1", LeadID: "ghost"})
	resolver.setDraft("c1", 0, true)

	err := svc.ProcessJob(context.Background(), deliveryJob())
	require.Error(t, err)
	assert.True(t, delivery.IsPermanent(err))
	assert.Empty(t, mailer.sends)
}

func TestProcessJobResolverFailureIsRetryable(t *testing.T) {
	store, resolver, mailer, svc := newDeliveryFixture()
	seedEnrollment(store)
	resolver.err = fmt.Errorf("provider timeout")

	err := svc.ProcessJob(context.Background(), deliveryJob())
	require.Error(t, err)
	assert.False(t, delivery.IsPermanent(err))
	assert.Empty(t, mailer.sends)
}

func TestProcessJobMailerFailureIsRetryableAndLeavesNoReceipt(t *testing.T) {
	store, resolver, mailer, svc := newDeliveryFixture()
	seedEnrollment(store)
	resolver.setDraft("c1", 0, true)
	mailer.err = fmt.Errorf("connection refused")

	err := svc.ProcessJob(context.Background(), deliveryJob())
	require.Error(t, err)
	assert.False(t, delivery.IsPermanent(err))

	sent, err := store.Exists(context.Background(), "cl1", 0)
	require.NoError(t, err)
	assert.False(t, sent, "a failed send must not commit a receipt")

	// Once the transport recovers the redelivered job goes through.
	mailer.err = nil
	require.NoError(t, svc.ProcessJob(context.Background(), deliveryJob()))
	assert.Equal(t, []string{"ada@example.com"}, mailer.sends)
}
