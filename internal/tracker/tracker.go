// Package tracker holds the polling pipelines: fetch from the Clash of Clans
// API, diff against stored state, upsert, and report progress to Discord.
package tracker

import (
	"context"
	"time"

	"clanwatch/internal/cocapi"
	"clanwatch/internal/storage"
)

// ClanAPI is the slice of the API client the pipelines use.
type ClanAPI interface {
	Clan(ctx context.Context, tag string) (*cocapi.Clan, error)
	WarLog(ctx context.Context, tag string) ([]cocapi.WarLogEntry, error)
	LeagueGroup(ctx context.Context, tag string) (*cocapi.LeagueGroup, error)
	LeagueWar(ctx context.Context, warTag string) (*cocapi.LeagueWar, error)
}

// Store is the slice of the sqlite store the pipelines use.
type Store interface {
	AppendClanSnapshot(ctx context.Context, snap storage.ClanSnapshot) error
	LatestClanSnapshot(ctx context.Context, clanTag string) (*storage.ClanSnapshot, error)
	UpsertMembers(ctx context.Context, members []storage.MemberRecord) error
	ActiveMembers(ctx context.Context, clanTag string) ([]storage.MemberRecord, error)
	MarkDeparted(ctx context.Context, clanTag string, memberTags []string, at time.Time) error
	InsertWarLogEntries(ctx context.Context, entries []storage.WarRecord) (int, error)
	UpsertCWLWar(ctx context.Context, rec storage.CWLWarRecord) (string, error)
	InsertCWLAttacks(ctx context.Context, attacks []storage.CWLAttackRecord) (int, error)
}

// Reporter delivers status lines to the Discord channel. Pipelines do not
// await delivery; receipts stay inside the delivery core.
type Reporter interface {
	Info(text, origin string)
	Success(text, origin string)
	Warning(text, origin string)
	Error(text, origin string)
}
