package repository

import (
	"context"
	"database/sql"
	"errors"
)

// MemberRepo answers group-role questions from the group_members table.
// It is the local implementation of the role resolver the issuance path
// consults: the ledger only ever asks "is this user an ADMIN of that
// group", never anything richer.
type MemberRepo struct {
	db *sql.DB
}

// NewMemberRepo returns a new MemberRepo bound to the given database.
func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{db: db} }

const memberRoleSelect = `SELECT role FROM group_members WHERE user_id = ? AND group_id = ? LIMIT 1`

// Role returns the user's role in the group, or "" when the user is not
// a member.
func (r *MemberRepo) Role(ctx context.Context, userID, groupID uint64) (string, error) {
	return scanRole(r.db.QueryRowContext(ctx, memberRoleSelect, userID, groupID))
}

// RoleTx is Role within an existing transaction.
func (r *MemberRepo) RoleTx(ctx context.Context, tx *sql.Tx, userID, groupID uint64) (string, error) {
	return scanRole(tx.QueryRowContext(ctx, memberRoleSelect, userID, groupID))
}

func scanRole(row *sql.Row) (string, error) {
	var role string
	err := row.Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}
