package store

import (
	"database/sql"
	"fmt"

	"github.com/sphinx-chat/sphinxd/internal/message"
)

// UpsertContact inserts or updates a contact record.
func (db *DB) UpsertContact(c *message.Contact) error {
	_, err := db.Exec(`
		INSERT INTO contacts (id, pubkey, route_hint, alias, avatar_url, is_owner)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pubkey = excluded.pubkey,
			route_hint = excluded.route_hint,
			alias = excluded.alias,
			avatar_url = excluded.avatar_url,
			is_owner = excluded.is_owner`,
		c.ID, c.Pubkey, c.RouteHint, c.Alias, c.AvatarURL, c.IsOwner)
	return err
}

// Owner returns the contact flagged as the account owner, or nil.
func (db *DB) Owner() (*message.Contact, error) {
	var c message.Contact
	err := db.QueryRow(`
		SELECT id, pubkey, route_hint, alias, avatar_url, is_owner
		FROM contacts WHERE is_owner = 1 LIMIT 1`).
		Scan(&c.ID, &c.Pubkey, &c.RouteHint, &c.Alias, &c.AvatarURL, &c.IsOwner)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ContactsByPubkeys resolves known contacts for a set of pubkeys in one query.
func (db *DB) ContactsByPubkeys(pubkeys []string) ([]message.Contact, error) {
	if len(pubkeys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, pubkey, route_hint, alias, avatar_url, is_owner
		FROM contacts WHERE pubkey IN (%s)`, placeholders(len(pubkeys)))
	rows, err := db.Query(query, toAnySlice(pubkeys)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []message.Contact
	for rows.Next() {
		var c message.Contact
		if err := rows.Scan(&c.ID, &c.Pubkey, &c.RouteHint, &c.Alias, &c.AvatarURL, &c.IsOwner); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
