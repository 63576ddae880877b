package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crimespot/libs/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	SentMessages []mailer.Message
	failFor      string
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Send(msg mailer.Message) (mailer.SendResult, error) {
	if m.failFor != "" && len(msg.To) > 0 && msg.To[0] == m.failFor {
		return mailer.SendResult{}, errors.New("provider unavailable")
	}
	m.SentMessages = append(m.SentMessages, msg)
	return mailer.SendResult{ProviderMessageID: "123"}, nil
}

func TestBuildPendingDigestEmail(t *testing.T) {
	app, _, _ := newTestServer(t)
	account := AdminAccount{Username: "pune<admin>", City: "Pune", Role: roleCityAdmin, Email: stringPtr("pune@example.com")}

	msg := app.buildPendingDigestEmail(account, "Pune", 4, "http://crimespot.test/admin_dashboard")

	assert.Equal(t, []string{"pune@example.com"}, msg.To)
	assert.Equal(t, "CrimeSpot: 4 reports awaiting review in Pune", msg.Subject)
	assert.Contains(t, msg.HTML, "pune&lt;admin&gt;")
	assert.Contains(t, msg.HTML, "http://crimespot.test/admin_dashboard")
	assert.Contains(t, msg.Text, "4 citizen reports")
	assert.Equal(t, "pune", msg.Tags["scope"])
}

func TestSendPendingDigestOnlyMailsAdminsWithPendingWork(t *testing.T) {
	app, store, _ := newTestServer(t)
	provider := &mockProvider{}
	app.mailer = mailer.New(provider, "alerts@crimespot.test")

	store.seedAdmin(t, "root", "pw", "India", roleSuperAdmin, stringPtr("root@example.com"))
	store.seedAdmin(t, "pune-admin", "pw", "Pune", roleCityAdmin, stringPtr("pune@example.com"))
	store.seedAdmin(t, "delhi-admin", "pw", "Delhi", roleCityAdmin, stringPtr("delhi@example.com"))
	store.seedAdmin(t, "drifter", "pw", "", roleCityAdmin, stringPtr("drifter@example.com"))
	store.seedAdmin(t, "silent", "pw", "Pune", roleCityAdmin, nil)

	store.seedReport(Report{City: "pune", CreatedAt: testNow, Status: statusPending})
	store.seedReport(Report{City: "Pune", CreatedAt: testNow, Status: statusPending})
	store.seedReport(Report{City: "Delhi", CreatedAt: testNow, Status: statusVerified})

	require.NoError(t, app.sendPendingDigest(context.Background()))

	require.Len(t, provider.SentMessages, 2)
	byRecipient := map[string]mailer.Message{}
	for _, msg := range provider.SentMessages {
		byRecipient[msg.To[0]] = msg
		assert.Equal(t, "alerts@crimespot.test", msg.From)
	}
	assert.True(t, strings.Contains(byRecipient["pune@example.com"].Subject, "2 reports awaiting review in Pune"))
	assert.True(t, strings.Contains(byRecipient["root@example.com"].Subject, "2 reports awaiting review in India"))
	assert.NotContains(t, byRecipient, "delhi@example.com")
	assert.NotContains(t, byRecipient, "drifter@example.com")
}

func TestSendPendingDigestContinuesAfterSendFailure(t *testing.T) {
	app, store, _ := newTestServer(t)
	provider := &mockProvider{failFor: "a@example.com"}
	app.mailer = mailer.New(provider, "alerts@crimespot.test")

	store.seedAdmin(t, "a-admin", "pw", "Pune", roleCityAdmin, stringPtr("a@example.com"))
	store.seedAdmin(t, "b-admin", "pw", "Pune", roleCityAdmin, stringPtr("b@example.com"))
	store.seedReport(Report{City: "Pune", CreatedAt: testNow, Status: statusPending})

	require.NoError(t, app.sendPendingDigest(context.Background()))
	require.Len(t, provider.SentMessages, 1)
	assert.Equal(t, []string{"b@example.com"}, provider.SentMessages[0].To)
}

func TestSendPendingDigestRecipientListFailure(t *testing.T) {
	app, store, _ := newTestServer(t)
	app.mailer = mailer.New(&mockProvider{}, "alerts@crimespot.test")
	store.readErr = errors.New("connection refused")

	err := app.sendPendingDigest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest recipients")
}
