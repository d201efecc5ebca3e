package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"clanwatch/internal/cocapi"
	"clanwatch/internal/storage"
)

// warEnded is the API state of a finished league war.
const warEnded = "warEnded"

// cwlSkipTag is the placeholder war tag for rounds not yet matched up.
const cwlSkipTag = "#0"

// CWLTask records every war of the clan's current league group plus the
// per-attack detail for the tracked clan, and announces finished wars the
// clan fought in.
type CWLTask struct {
	Client ClanAPI
	Store  Store
	Report Reporter
	Tag    string
}

func (t *CWLTask) Name() string { return "cwl:" + t.Tag }

func (t *CWLTask) Run(ctx context.Context) error {
	group, err := t.Client.LeagueGroup(ctx, t.Tag)
	if err != nil {
		// 404 means no league is running; that is the normal state for most
		// of the month.
		var apiErr *cocapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil
		}
		t.Report.Error(fmt.Sprintf("failed to fetch league group for %s: %v", t.Tag, err), t.Name())
		return err
	}

	var newWars, newAttacks int
	for roundIdx, round := range group.Rounds {
		for _, warTag := range round.WarTags {
			if warTag == cwlSkipTag {
				continue
			}
			war, err := t.Client.LeagueWar(ctx, warTag)
			if err != nil {
				t.Report.Error(fmt.Sprintf("failed to fetch league war %s: %v", warTag, err), t.Name())
				return err
			}

			rec := cwlWarRecord(t.Tag, warTag, group.Season, roundIdx+1, war)
			prevState, err := t.Store.UpsertCWLWar(ctx, rec)
			if err != nil {
				t.Report.Error(fmt.Sprintf("failed to store league war %s: %v", warTag, err), t.Name())
				return err
			}
			if prevState == "" {
				newWars++
			}

			ours, theirs, involved := orientWar(war, t.Tag)
			if !involved {
				continue
			}

			inserted, err := t.Store.InsertCWLAttacks(ctx, cwlAttackRecords(t.Tag, warTag, group.Season, ours))
			if err != nil {
				t.Report.Error(fmt.Sprintf("failed to store league attacks for %s: %v", warTag, err), t.Name())
				return err
			}
			newAttacks += inserted

			// Announce each of our wars once, when it transitions to ended.
			// A war first seen already ended (prevState "") is announced too.
			if rec.State == warEnded && prevState != warEnded {
				t.Report.Info(describeCWLWar(roundIdx+1, ours, theirs), t.Name())
			}
		}
	}

	if newWars > 0 || newAttacks > 0 {
		t.Report.Success(fmt.Sprintf("cwl %s updated for %s: %d new wars, %d new attacks",
			group.Season, t.Tag, newWars, newAttacks), t.Name())
	}
	return nil
}

func cwlWarRecord(clanTag, warTag, season string, round int, war *cocapi.LeagueWar) storage.CWLWarRecord {
	return storage.CWLWarRecord{
		ClanTag:       clanTag,
		WarTag:        warTag,
		Season:        season,
		Round:         round,
		State:         war.State,
		TeamSize:      war.TeamSize,
		PrepStartTime: war.PreparationStartTime,
		StartTime:     war.StartTime,
		EndTime:       war.EndTime,

		Clan1Tag:         war.Clan.Tag,
		Clan1Name:        war.Clan.Name,
		Clan1Stars:       war.Clan.Stars,
		Clan1Destruction: war.Clan.DestructionPercentage,
		Clan1Attacks:     war.Clan.Attacks,

		Clan2Tag:         war.Opponent.Tag,
		Clan2Name:        war.Opponent.Name,
		Clan2Stars:       war.Opponent.Stars,
		Clan2Destruction: war.Opponent.DestructionPercentage,
		Clan2Attacks:     war.Opponent.Attacks,

		WinnerTag: cwlWinner(war),
	}
}

// cwlWinner picks the leading side by stars, then destruction; "tie" when
// both are level.
func cwlWinner(war *cocapi.LeagueWar) string {
	switch {
	case war.Clan.Stars > war.Opponent.Stars:
		return war.Clan.Tag
	case war.Opponent.Stars > war.Clan.Stars:
		return war.Opponent.Tag
	case war.Clan.DestructionPercentage > war.Opponent.DestructionPercentage:
		return war.Clan.Tag
	case war.Opponent.DestructionPercentage > war.Clan.DestructionPercentage:
		return war.Opponent.Tag
	default:
		return "tie"
	}
}

// orientWar returns the tracked clan's side first. involved is false for the
// group's wars between two other clans, which are stored but not announced.
func orientWar(war *cocapi.LeagueWar, clanTag string) (ours, theirs cocapi.WarSide, involved bool) {
	switch clanTag {
	case war.Clan.Tag:
		return war.Clan, war.Opponent, true
	case war.Opponent.Tag:
		return war.Opponent, war.Clan, true
	default:
		return cocapi.WarSide{}, cocapi.WarSide{}, false
	}
}

func cwlAttackRecords(clanTag, warTag, season string, side cocapi.WarSide) []storage.CWLAttackRecord {
	var out []storage.CWLAttackRecord
	for _, m := range side.Members {
		for _, a := range m.Attacks {
			out = append(out, storage.CWLAttackRecord{
				ClanTag:          clanTag,
				WarTag:           warTag,
				Season:           season,
				AttackerTag:      m.Tag,
				AttackerName:     m.Name,
				AttackerTH:       m.TownhallLevel,
				AttackerPosition: m.MapPosition,
				DefenderTag:      a.DefenderTag,
				Stars:            a.Stars,
				Destruction:      a.DestructionPercentage,
				Order:            a.Order,
				Duration:         a.Duration,
			})
		}
	}
	return out
}

func describeCWLWar(round int, ours, theirs cocapi.WarSide) string {
	result := "tie"
	switch {
	case ours.Stars > theirs.Stars:
		result = "win"
	case ours.Stars < theirs.Stars:
		result = "loss"
	case ours.DestructionPercentage > theirs.DestructionPercentage:
		result = "win"
	case ours.DestructionPercentage < theirs.DestructionPercentage:
		result = "loss"
	}
	opponent := theirs.Name
	if opponent == "" {
		opponent = theirs.Tag
	}
	return fmt.Sprintf("cwl round %d vs %s: %s (%d⭐ %.1f%% vs %d⭐ %.1f%%)",
		round, opponent, result,
		ours.Stars, ours.DestructionPercentage,
		theirs.Stars, theirs.DestructionPercentage)
}
