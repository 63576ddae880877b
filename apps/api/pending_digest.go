package main

import (
	"context"
	"fmt"
	"html"

	"crimespot/libs/mailer"
)

func (a *App) buildPendingDigestEmail(account AdminAccount, scopeLabel string, pendingCount int, dashboardURL string) mailer.Message {
	subject := fmt.Sprintf("CrimeSpot: %d reports awaiting review in %s", pendingCount, scopeLabel)

	htmlBody := fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; line-height: 1.6; color: #333;">
			<h2>Hello %s,</h2>
			<p>There are <strong>%d</strong> citizen reports for <strong>%s</strong> waiting for verification.</p>
			<p style="margin: 30px 0;">
				<a href="%s" style="background-color: #b71c1c; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold; display: inline-block;">
					Open admin dashboard
				</a>
			</p>
		</div>
	`, html.EscapeString(account.Username), pendingCount, html.EscapeString(scopeLabel), dashboardURL)

	text := fmt.Sprintf(
		"Hello %s,\n\nThere are %d citizen reports for %s waiting for verification.\n\nReview them here:\n%s\n",
		account.Username, pendingCount, scopeLabel, dashboardURL,
	)

	return mailer.Message{
		To:      []string{*account.Email},
		Subject: subject,
		HTML:    htmlBody,
		Text:    text,
		Tags: map[string]string{
			"kind":  "pending_digest",
			"scope": sanitizeFileNamePart(scopeLabel),
		},
	}
}

// sendPendingDigest emails every admin with an address on file when their
// scope has pending reports. Per-admin failures are logged and skipped.
func (a *App) sendPendingDigest(ctx context.Context) error {
	recipients, err := a.store.ListDigestRecipients(ctx)
	if err != nil {
		return fmt.Errorf("failed to list digest recipients: %w", err)
	}

	dashboardURL := a.cfg.PublicBaseURL + "/admin_dashboard"
	for _, account := range recipients {
		if account.Email == nil || *account.Email == "" {
			continue
		}

		scope, err := scopeForSession(AdminSession{Username: account.Username, City: account.City, Role: account.Role})
		if err != nil {
			a.log.Warn("digest recipient has no city scope", "username", account.Username)
			continue
		}

		counts, err := a.store.CountByStatus(ctx, scope)
		if err != nil {
			a.log.Error("failed to count pending reports", "username", account.Username, "scope", scope.String(), "err", err)
			continue
		}

		if counts.Pending == 0 {
			a.log.Info("skipping pending digest (0 pending reports)", "username", account.Username, "scope", scope.String())
			continue
		}

		msg := a.buildPendingDigestEmail(account, a.scopeLabel(scope), counts.Pending, dashboardURL)
		if _, err := a.mailer.Send(msg); err != nil {
			a.log.Error("failed to send pending digest", "username", account.Username, "err", err)
			continue
		}

		a.log.Info("sent pending digest", "username", account.Username, "scope", scope.String(), "pending", counts.Pending)
	}

	return nil
}
