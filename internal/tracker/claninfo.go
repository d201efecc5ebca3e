package tracker

import (
	"context"
	"fmt"
	"time"

	"clanwatch/internal/cocapi"
	"clanwatch/internal/storage"
)

// ClanInfoTask appends a daily clan snapshot and reports notable changes
// since the previous one.
type ClanInfoTask struct {
	Client ClanAPI
	Store  Store
	Report Reporter
	Tag    string
	Season string
}

func (t *ClanInfoTask) Name() string { return "clan_info:" + t.Tag }

func (t *ClanInfoTask) Run(ctx context.Context) error {
	clan, err := t.Client.Clan(ctx, t.Tag)
	if err != nil {
		t.Report.Error(fmt.Sprintf("failed to fetch clan %s: %v", t.Tag, err), t.Name())
		return err
	}

	prev, err := t.Store.LatestClanSnapshot(ctx, t.Tag)
	if err != nil {
		t.Report.Error(fmt.Sprintf("failed to load previous snapshot for %s: %v", t.Tag, err), t.Name())
		return err
	}

	snap := snapshotFromClan(clan, t.Season, time.Now())
	if err := t.Store.AppendClanSnapshot(ctx, snap); err != nil {
		t.Report.Error(fmt.Sprintf("failed to store snapshot for %s: %v", t.Tag, err), t.Name())
		return err
	}

	t.Report.Success(fmt.Sprintf("clan info updated for %s: level %d, %d points, %d members",
		clan.Name, clan.ClanLevel, clan.ClanPoints, clan.Members), t.Name())
	for _, change := range snapshotChanges(prev, &snap) {
		t.Report.Info(change, t.Name())
	}
	return nil
}

func snapshotFromClan(clan *cocapi.Clan, season string, at time.Time) storage.ClanSnapshot {
	return storage.ClanSnapshot{
		ClanTag:     clan.Tag,
		Season:      season,
		LoggedAt:    at,
		Name:        clan.Name,
		Level:       clan.ClanLevel,
		Points:      clan.ClanPoints,
		MemberCount: clan.Members,
		WarWins:     clan.WarWins,
		WarLosses:   clan.WarLosses,
		WarTies:     clan.WarTies,
	}
}

// snapshotChanges describes the day-over-day movement between two snapshots.
// A nil prev (first run) yields nothing.
func snapshotChanges(prev *storage.ClanSnapshot, cur *storage.ClanSnapshot) []string {
	if prev == nil {
		return nil
	}
	var out []string
	if cur.Level != prev.Level {
		out = append(out, fmt.Sprintf("clan level changed: %d -> %d", prev.Level, cur.Level))
	}
	if d := cur.Points - prev.Points; d != 0 {
		out = append(out, fmt.Sprintf("clan points %+d (now %d)", d, cur.Points))
	}
	if d := cur.MemberCount - prev.MemberCount; d != 0 {
		out = append(out, fmt.Sprintf("member count %+d (now %d)", d, cur.MemberCount))
	}
	if prev.WarWins != nil && cur.WarWins != nil && *cur.WarWins > *prev.WarWins {
		out = append(out, fmt.Sprintf("war wins +%d (now %d)", *cur.WarWins-*prev.WarWins, *cur.WarWins))
	}
	return out
}
