package model

import "time"

// HouseholdInvite is a single-use code that adds its redeemer to a household.
type HouseholdInvite struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Code        string     `json:"code"`
	CreatedBy   int64      `json:"created_by"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedBy      *int64     `json:"used_by,omitempty"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
