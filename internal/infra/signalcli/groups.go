package signalcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// SendGroupMessage sends text to a group. Sends are never retried.
func (c *Client) SendGroupMessage(ctx context.Context, groupID, text string) error {
	_, err := c.Run(ctx, c.args(true, "send", "-g", groupID, "-m", text)...)
	return err
}

// RemoveMember removes member from a group
func (c *Client) RemoveMember(ctx context.Context, groupID, member string) error {
	_, err := c.runIdempotent(ctx, c.args(true, "updateGroup", "-g", groupID, "--remove-member", member)...)
	return err
}

// UpdatePermissions sets the add-member, send-messages and edit-details
// permissions of a group in one call.
func (c *Client) UpdatePermissions(ctx context.Context, groupID, addMember, sendMessages, editDetails string) error {
	_, err := c.runIdempotent(ctx, c.args(true,
		"updateGroup", "-g", groupID,
		"--set-permission-add-member", addMember,
		"--set-permission-send-messages", sendMessages,
		"--set-permission-edit-details", editDetails,
	)...)
	return err
}

// ListGroups lists the groups of the account with their admins and members
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	out, err := c.runIdempotent(ctx, c.args(true, "-o", "json", "listGroups")...)
	if err != nil {
		return nil, err
	}
	var groups []Group
	if err := decodeList(out, &groups); err != nil {
		return nil, fmt.Errorf("parse listGroups: %w", err)
	}
	return groups, nil
}

// ListContacts lists every recipient known to the account
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	out, err := c.runIdempotent(ctx, c.args(true, "-o", "json", "listContacts", "--all-recipients", "--detailed")...)
	if err != nil {
		return nil, err
	}
	var contacts []Contact
	if err := decodeList(out, &contacts); err != nil {
		return nil, fmt.Errorf("parse listContacts: %w", err)
	}
	return contacts, nil
}

// decodeList decodes a JSON array; empty output is an empty list
func decodeList(out []byte, v any) error {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil
	}
	return json.Unmarshal(out, v)
}
