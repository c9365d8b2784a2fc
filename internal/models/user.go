package models

import "github.com/lib/pq"

// User is an account record. Email is the canonical identifier used by the
// follow relation and the message log; Username is the human-facing handle.
type User struct {
	ID           int            `db:"id" json:"-"`
	Email        string         `db:"email" json:"email"`
	Username     string         `db:"username" json:"username"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FullName     string         `db:"full_name" json:"name"`
	Birthdate    string         `db:"birthdate" json:"birthdate,omitempty"`
	Gender       string         `db:"gender" json:"gender,omitempty"`
	Interests    pq.StringArray `db:"interests" json:"interests,omitempty"`

	// Emails of accounts on either side of the follow relation. A NULL
	// column on legacy rows scans to an empty array, never an error.
	Followers pq.StringArray `db:"followers" json:"-"`
	Following pq.StringArray `db:"following" json:"-"`
}

// IsFollowing reports membership of the target identifier in Following.
func (u *User) IsFollowing(email string) bool {
	for _, e := range u.Following {
		if e == email {
			return true
		}
	}
	return false
}

// AddFollowing inserts the identifier, keeping the set duplicate-free.
func (u *User) AddFollowing(email string) {
	if !u.IsFollowing(email) {
		u.Following = append(u.Following, email)
	}
}

// RemoveFollowing deletes the identifier if present.
func (u *User) RemoveFollowing(email string) {
	u.Following = removeString(u.Following, email)
}

// AddFollower inserts the identifier, keeping the set duplicate-free.
func (u *User) AddFollower(email string) {
	for _, e := range u.Followers {
		if e == email {
			return
		}
	}
	u.Followers = append(u.Followers, email)
}

// RemoveFollower deletes the identifier if present.
func (u *User) RemoveFollower(email string) {
	u.Followers = removeString(u.Followers, email)
}

func removeString(set pq.StringArray, value string) pq.StringArray {
	out := set[:0]
	for _, e := range set {
		if e != value {
			out = append(out, e)
		}
	}
	return out
}

// UserSummary is the directory item shape used by follower/following lists,
// search results and suggestions.
type UserSummary struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
}

// MentionSummary decorates a directory item with both directions of the
// follow relation relative to the requesting account.
type MentionSummary struct {
	UserSummary
	IsFollowing bool `json:"isFollowing"`
	IsFollower  bool `json:"isFollower"`
}

// Summary projects the account into its directory item shape.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.Email,
		Username:       u.Username,
		Email:          u.Email,
		Name:           u.FullName,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
	}
}
