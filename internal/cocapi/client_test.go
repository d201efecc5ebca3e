package cocapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{Key: "test-key", BaseURL: srv.URL, RatePerSec: 1000}, zerolog.Nop())
	return c, srv
}

func TestClanFetch(t *testing.T) {
	t.Parallel()
	var gotPath, gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{
			"tag": "#20CG8UURL",
			"name": "Test Clan",
			"clanLevel": 12,
			"clanPoints": 34567,
			"members": 2,
			"warWins": 210,
			"isWarLogPublic": true,
			"memberList": [
				{"tag": "#P1", "name": "Alpha", "role": "leader", "expLevel": 200, "trophies": 5000, "clanRank": 1, "donations": 300, "donationsReceived": 120},
				{"tag": "#P2", "name": "Beta", "role": "member", "expLevel": 150, "trophies": 4000, "clanRank": 2, "donations": 10, "donationsReceived": 50}
			]
		}`)
	})

	clan, err := c.Clan(context.Background(), "#20CG8UURL")
	if err != nil {
		t.Fatalf("Clan: %v", err)
	}
	if gotPath != "/clans/%2320CG8UURL" {
		t.Fatalf("path = %q, want escaped tag", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if clan.Name != "Test Clan" || clan.ClanPoints != 34567 {
		t.Fatalf("clan = %+v", clan)
	}
	if clan.WarWins == nil || *clan.WarWins != 210 {
		t.Fatalf("war wins = %v", clan.WarWins)
	}
	if clan.WarLosses != nil {
		t.Fatalf("absent field should stay nil, got %v", *clan.WarLosses)
	}
	if len(clan.MemberList) != 2 || clan.MemberList[1].Name != "Beta" {
		t.Fatalf("members = %+v", clan.MemberList)
	}
}

func TestWarLogFetch(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/clans/%23AAA/warlog" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		_, _ = io.WriteString(w, `{"items": [
			{"result": "win", "endTime": "20260301T070102.000Z", "teamSize": 15,
			 "clan": {"tag": "#AAA", "stars": 40, "destructionPercentage": 95.5, "attacks": 28},
			 "opponent": {"tag": "#BBB", "stars": 31, "destructionPercentage": 80.1}},
			{"result": null, "endTime": "20260225T070000.000Z", "teamSize": 30,
			 "clan": {"tag": "#AAA", "stars": 50, "destructionPercentage": 60},
			 "opponent": {"tag": "#CCC", "stars": 44, "destructionPercentage": 55}}
		]}`)
	})

	entries, err := c.WarLog(context.Background(), "#AAA")
	if err != nil {
		t.Fatalf("WarLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Result == nil || *entries[0].Result != "win" {
		t.Fatalf("result = %v", entries[0].Result)
	}
	if entries[1].Result != nil {
		t.Fatal("CWL round should have nil result")
	}
	if entries[0].Opponent.Attacks != nil {
		t.Fatal("opponent attacks should stay nil")
	}
}

func TestLeagueEndpoints(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/clans/%23AAA/currentwar/leaguegroup":
			_, _ = io.WriteString(w, `{"state": "inWar", "season": "2026-03",
				"rounds": [{"warTags": ["#W1", "#0"]}, {"warTags": ["#0", "#0"]}]}`)
		case "/clanwarleagues/wars/%23W1":
			_, _ = io.WriteString(w, `{"state": "warEnded", "teamSize": 15,
				"startTime": "20260304T070000.000Z", "endTime": "20260305T070000.000Z",
				"clan": {"tag": "#AAA", "name": "Testers", "stars": 30, "destructionPercentage": 88.5, "attacks": 12,
					"members": [{"tag": "#P1", "name": "Alpha", "townhallLevel": 16, "mapPosition": 1,
						"attacks": [{"attackerTag": "#P1", "defenderTag": "#E1", "stars": 3, "destructionPercentage": 100, "order": 4, "duration": 120}]}]},
				"opponent": {"tag": "#BBB", "name": "Rivals", "stars": 22, "destructionPercentage": 70.1}}`)
		default:
			t.Errorf("unexpected path %q", r.URL.EscapedPath())
			w.WriteHeader(http.StatusNotFound)
		}
	})

	group, err := c.LeagueGroup(context.Background(), "#AAA")
	if err != nil {
		t.Fatalf("LeagueGroup: %v", err)
	}
	if group.Season != "2026-03" || len(group.Rounds) != 2 || group.Rounds[0].WarTags[0] != "#W1" {
		t.Fatalf("group = %+v", group)
	}

	war, err := c.LeagueWar(context.Background(), "#W1")
	if err != nil {
		t.Fatalf("LeagueWar: %v", err)
	}
	if war.State != "warEnded" || war.Clan.Stars != 30 || war.Opponent.Name != "Rivals" {
		t.Fatalf("war = %+v", war)
	}
	if len(war.Clan.Members) != 1 || len(war.Clan.Members[0].Attacks) != 1 {
		t.Fatalf("members = %+v", war.Clan.Members)
	}
	if a := war.Clan.Members[0].Attacks[0]; a.DefenderTag != "#E1" || a.Stars != 3 || a.DestructionPercentage != 100 {
		t.Fatalf("attack = %+v", a)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"reason": "notFound", "message": "Resource not found"}`)
	})

	_, err := c.Clan(context.Background(), "#NOPE")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Reason != "notFound" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Clan(ctx, "#AAA"); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
