package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"clanwatch/internal/cocapi"
	"clanwatch/internal/storage"
)

// WarLogTask records newly finished wars and announces their outcomes.
type WarLogTask struct {
	Client ClanAPI
	Store  Store
	Report Reporter
	Tag    string
}

func (t *WarLogTask) Name() string { return "war_log:" + t.Tag }

func (t *WarLogTask) Run(ctx context.Context) error {
	entries, err := t.Client.WarLog(ctx, t.Tag)
	if err != nil {
		// A private war log is a configuration issue on the clan side, not
		// a transient failure worth an error ping.
		var apiErr *cocapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			t.Report.Warning(fmt.Sprintf("war log for %s is private, skipping", t.Tag), t.Name())
			return nil
		}
		t.Report.Error(fmt.Sprintf("failed to fetch war log for %s: %v", t.Tag, err), t.Name())
		return err
	}

	records := make([]storage.WarRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, warRecordFromEntry(t.Tag, e))
	}

	inserted, err := t.Store.InsertWarLogEntries(ctx, records)
	if err != nil {
		t.Report.Error(fmt.Sprintf("failed to store war log for %s: %v", t.Tag, err), t.Name())
		return err
	}
	if inserted == 0 {
		return nil
	}

	// Entries arrive most recent first, so the unseen ones are the leading
	// block. Announce them oldest first.
	for i := inserted - 1; i >= 0 && i < len(entries); i-- {
		t.Report.Info(describeWar(entries[i]), t.Name())
	}
	t.Report.Success(fmt.Sprintf("war log updated for %s: %d new entries", t.Tag, inserted), t.Name())
	return nil
}

func warRecordFromEntry(clanTag string, e cocapi.WarLogEntry) storage.WarRecord {
	return storage.WarRecord{
		ClanTag:             clanTag,
		EndTime:             e.EndTime,
		Result:              e.Result,
		TeamSize:            e.TeamSize,
		ClanStars:           e.Clan.Stars,
		ClanDestruction:     e.Clan.DestructionPercentage,
		ClanAttacks:         e.Clan.Attacks,
		OpponentTag:         e.Opponent.Tag,
		OpponentName:        e.Opponent.Name,
		OpponentStars:       e.Opponent.Stars,
		OpponentDestruction: e.Opponent.DestructionPercentage,
	}
}

func describeWar(e cocapi.WarLogEntry) string {
	result := "cwl round"
	if e.Result != nil {
		result = *e.Result
	}
	opponent := e.Opponent.Name
	if opponent == "" {
		opponent = e.Opponent.Tag
	}
	return fmt.Sprintf("war vs %s: %s (%d⭐ %.1f%% vs %d⭐ %.1f%%, %dv%d)",
		opponent, result,
		e.Clan.Stars, e.Clan.DestructionPercentage,
		e.Opponent.Stars, e.Opponent.DestructionPercentage,
		e.TeamSize, e.TeamSize)
}
