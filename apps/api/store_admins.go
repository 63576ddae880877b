package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func scanAdmin(row rowScanner) (AdminAccount, error) {
	var account AdminAccount
	var email sql.NullString
	if err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &account.City, &account.Role, &email); err != nil {
		return AdminAccount{}, err
	}
	if email.Valid && email.String != "" {
		account.Email = &email.String
	}
	return account, nil
}

func (s *pgStore) FindAdminByUsername(ctx context.Context, username string) (*AdminAccount, error) {
	query, args, err := buildAdminByUsernameQuery(username).ToSql()
	if err != nil {
		return nil, err
	}
	account, err := scanAdmin(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find admin %q: %w", username, err)
	}
	return &account, nil
}

func (s *pgStore) UpsertAdmin(ctx context.Context, account AdminAccount) error {
	query, args, err := buildUpsertAdminQuery(account).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert admin %q: %w", account.Username, err)
	}
	return nil
}

func (s *pgStore) ListDigestRecipients(ctx context.Context) ([]AdminAccount, error) {
	query, args, err := buildDigestRecipientsQuery().ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list digest recipients: %w", err)
	}
	defer rows.Close()

	accounts := []AdminAccount{}
	for rows.Next() {
		account, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
