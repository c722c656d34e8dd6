package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
)

// DefaultInviteTTL is how long an invite code stays redeemable.
const DefaultInviteTTL = 48 * time.Hour

// ErrAlreadyMember is returned when the redeemer already belongs to the
// invite's household. The invite is left unused.
var ErrAlreadyMember = errors.New("already a member of this household")

type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.HouseholdInvite, error) {
	var inv model.HouseholdInvite
	var usedBy sql.NullInt64
	var usedAt sql.NullTime
	err := scanner.Scan(&inv.ID, &inv.HouseholdID, &inv.Code, &inv.CreatedBy, &inv.ExpiresAt, &usedBy, &usedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if usedBy.Valid {
		inv.UsedBy = &usedBy.Int64
	}
	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	return &inv, nil
}

const inviteCols = `id, household_id, code, created_by, expires_at, used_by, used_at, created_at`

var inviteEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// generateInviteCode returns 8 base32 characters (40 random bits).
func generateInviteCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	return inviteEncoding.EncodeToString(b), nil
}

// NormalizeInviteCode uppercases code and drops separators, so "abcd-efgh"
// and "ABCDEFGH" name the same invite.
func NormalizeInviteCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, code)
}

func (s *InviteStore) Create(householdID, createdBy int64, ttl time.Duration) (*model.HouseholdInvite, error) {
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	code, err := generateInviteCode()
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRow(
		`INSERT INTO household_invites (household_id, code, created_by, expires_at) VALUES (?, ?, ?, ?)
		 RETURNING `+inviteCols,
		householdID, code, createdBy, time.Now().UTC().Add(ttl),
	)
	inv, err := scanInvite(row)
	if err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	return inv, nil
}

// ListPending returns the household's unused, unexpired invites, newest first.
func (s *InviteStore) ListPending(householdID int64) ([]model.HouseholdInvite, error) {
	rows, err := s.db.Query(
		`SELECT `+inviteCols+` FROM household_invites
		 WHERE household_id = ? AND used_at IS NULL AND expires_at > ?
		 ORDER BY id DESC`,
		householdID, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []model.HouseholdInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	return invites, rows.Err()
}

// Revoke deletes an unused invite and reports whether one was found.
func (s *InviteStore) Revoke(householdID, id int64) (bool, error) {
	result, err := s.db.Exec(
		`DELETE FROM household_invites WHERE id = ? AND household_id = ? AND used_at IS NULL`,
		id, householdID,
	)
	if err != nil {
		return false, fmt.Errorf("revoke invite: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Accept redeems code for userID: it marks the invite used and adds the user
// to the household as a member, in one transaction. Unknown, used and expired
// codes yield (nil, nil).
func (s *InviteStore) Accept(code string, userID int64) (*model.HouseholdInvite, error) {
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inv, err := scanInvite(tx.QueryRow(
		`SELECT `+inviteCols+` FROM household_invites WHERE code = ? AND used_at IS NULL AND expires_at > ?`,
		code, now,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}

	role, err := memberRole(tx, inv.HouseholdID, userID)
	if err != nil {
		return nil, err
	}
	if role != "" {
		return nil, ErrAlreadyMember
	}

	result, err := tx.Exec(
		`UPDATE household_invites SET used_by = ?, used_at = ? WHERE id = ? AND used_at IS NULL`,
		userID, now, inv.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark invite used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(
		`INSERT INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
		inv.HouseholdID, userID, auth.RoleMember,
	); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	inv.UsedBy = &userID
	inv.UsedAt = &now
	return inv, nil
}
