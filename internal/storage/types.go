package storage

import "time"

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// ClanSnapshot is one daily clan_info row, append-only and date-ascending.
type ClanSnapshot struct {
	ClanTag     string
	Season      string
	LoggedAt    time.Time
	Name        string
	Level       int
	Points      int
	MemberCount int
	WarWins     *int
	WarLosses   *int
	WarTies     *int
}

// MemberRecord is the persisted roster state for one player in one clan.
// DepartedAt is nil while the player is on the roster.
type MemberRecord struct {
	ClanTag           string
	MemberTag         string
	Name              string
	Role              string
	ExpLevel          int
	Trophies          int
	ClanRank          int
	Donations         int
	DonationsReceived int
	FirstSeen         time.Time
	LastSeen          time.Time
	DepartedAt        *time.Time
}

// CWLWarRecord is one cwl_wars row, keyed by (clan_tag, war_tag). Sides keep
// the API's orientation: clan1 is the response's "clan", clan2 its opponent.
type CWLWarRecord struct {
	ClanTag       string
	WarTag        string
	Season        string
	Round         int
	State         string
	TeamSize      int
	PrepStartTime string
	StartTime     string
	EndTime       string

	Clan1Tag         string
	Clan1Name        string
	Clan1Stars       int
	Clan1Destruction float64
	Clan1Attacks     int

	Clan2Tag         string
	Clan2Name        string
	Clan2Stars       int
	Clan2Destruction float64
	Clan2Attacks     int

	// WinnerTag is the leading side's tag, or "tie".
	WinnerTag string
}

// CWLAttackRecord is one attack by a tracked clan's member, keyed by
// (clan_tag, war_tag, attacker_tag, defender_tag).
type CWLAttackRecord struct {
	ClanTag          string
	WarTag           string
	Season           string
	AttackerTag      string
	AttackerName     string
	AttackerTH       int
	AttackerPosition int
	DefenderTag      string
	Stars            int
	Destruction      int
	Order            int
	Duration         int
}

// WarRecord is one war_log row, keyed by (clan_tag, end_time).
type WarRecord struct {
	ClanTag             string
	EndTime             string
	Result              *string
	TeamSize            int
	ClanStars           int
	ClanDestruction     float64
	ClanAttacks         *int
	OpponentTag         string
	OpponentName        string
	OpponentStars       int
	OpponentDestruction float64
}
