package tracker

import (
	"context"
	"fmt"
	"time"

	"clanwatch/internal/storage"
)

// MembersTask reconciles the stored roster with the live one and announces
// joins, leaves and role changes.
type MembersTask struct {
	Client ClanAPI
	Store  Store
	Report Reporter
	Tag    string
}

func (t *MembersTask) Name() string { return "members:" + t.Tag }

func (t *MembersTask) Run(ctx context.Context) error {
	clan, err := t.Client.Clan(ctx, t.Tag)
	if err != nil {
		t.Report.Error(fmt.Sprintf("failed to fetch roster for %s: %v", t.Tag, err), t.Name())
		return err
	}

	prev, err := t.Store.ActiveMembers(ctx, t.Tag)
	if err != nil {
		t.Report.Error(fmt.Sprintf("failed to load stored roster for %s: %v", t.Tag, err), t.Name())
		return err
	}

	now := time.Now()
	changes := diffRoster(prev, clan.MemberList)

	records := make([]storage.MemberRecord, 0, len(clan.MemberList))
	for _, m := range clan.MemberList {
		records = append(records, storage.MemberRecord{
			ClanTag:           t.Tag,
			MemberTag:         m.Tag,
			Name:              m.Name,
			Role:              m.Role,
			ExpLevel:          m.ExpLevel,
			Trophies:          m.Trophies,
			ClanRank:          m.ClanRank,
			Donations:         m.Donations,
			DonationsReceived: m.DonationsReceived,
			FirstSeen:         now,
			LastSeen:          now,
		})
	}
	if err := t.Store.UpsertMembers(ctx, records); err != nil {
		t.Report.Error(fmt.Sprintf("failed to store roster for %s: %v", t.Tag, err), t.Name())
		return err
	}
	if err := t.Store.MarkDeparted(ctx, t.Tag, departedTags(changes), now); err != nil {
		t.Report.Error(fmt.Sprintf("failed to mark departures for %s: %v", t.Tag, err), t.Name())
		return err
	}

	for _, c := range changes {
		t.Report.Info(c.String(), t.Name())
	}
	t.Report.Success(fmt.Sprintf("roster updated for %s: %d members, %d changes",
		clan.Name, len(clan.MemberList), len(changes)), t.Name())
	return nil
}
