package cocapi

// Clan mirrors the /clans/{tag} response, limited to the fields the tracker
// records. Pointer fields may be absent for clans with a private war log.
type Clan struct {
	Tag              string   `json:"tag"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ClanLevel        int      `json:"clanLevel"`
	ClanPoints       int      `json:"clanPoints"`
	Members          int      `json:"members"`
	WarWins          *int     `json:"warWins"`
	WarLosses        *int     `json:"warLosses"`
	WarTies          *int     `json:"warTies"`
	IsWarLogPublic   bool     `json:"isWarLogPublic"`
	RequiredTrophies int      `json:"requiredTrophies"`
	MemberList       []Member `json:"memberList"`
}

// Member is one roster entry inside a Clan.
type Member struct {
	Tag               string `json:"tag"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	ExpLevel          int    `json:"expLevel"`
	Trophies          int    `json:"trophies"`
	ClanRank          int    `json:"clanRank"`
	Donations         int    `json:"donations"`
	DonationsReceived int    `json:"donationsReceived"`
}

type warLogResponse struct {
	Items []WarLogEntry `json:"items"`
}

// WarLogEntry is one finished war. Result is nil for CWL rounds, which the
// war log reports without an outcome.
type WarLogEntry struct {
	Result   *string      `json:"result"`
	EndTime  string       `json:"endTime"`
	TeamSize int          `json:"teamSize"`
	Clan     WarClanStats `json:"clan"`
	Opponent WarClanStats `json:"opponent"`
}

// LeagueGroup mirrors /clans/{tag}/currentwar/leaguegroup. The API answers
// 404 notFound while no league is running.
type LeagueGroup struct {
	State  string        `json:"state"`
	Season string        `json:"season"`
	Rounds []LeagueRound `json:"rounds"`
}

// LeagueRound lists the war tags of one CWL round. Undetermined wars carry
// the placeholder tag "#0".
type LeagueRound struct {
	WarTags []string `json:"warTags"`
}

// LeagueWar mirrors /clanwarleagues/wars/{warTag}.
type LeagueWar struct {
	State                string  `json:"state"`
	TeamSize             int     `json:"teamSize"`
	PreparationStartTime string  `json:"preparationStartTime"`
	StartTime            string  `json:"startTime"`
	EndTime              string  `json:"endTime"`
	Clan                 WarSide `json:"clan"`
	Opponent             WarSide `json:"opponent"`
}

// WarSide is one participant of a league war, members included.
type WarSide struct {
	Tag                   string      `json:"tag"`
	Name                  string      `json:"name"`
	ClanLevel             int         `json:"clanLevel"`
	Attacks               int         `json:"attacks"`
	Stars                 int         `json:"stars"`
	DestructionPercentage float64     `json:"destructionPercentage"`
	Members               []WarMember `json:"members"`
}

// WarMember is one lineup entry. Attacks is empty while the member has not
// attacked.
type WarMember struct {
	Tag           string      `json:"tag"`
	Name          string      `json:"name"`
	TownhallLevel int         `json:"townhallLevel"`
	MapPosition   int         `json:"mapPosition"`
	Attacks       []WarAttack `json:"attacks"`
}

// WarAttack is a single attack. Destruction is an integer percentage here,
// unlike the fractional clan-level totals.
type WarAttack struct {
	AttackerTag           string `json:"attackerTag"`
	DefenderTag           string `json:"defenderTag"`
	Stars                 int    `json:"stars"`
	DestructionPercentage int    `json:"destructionPercentage"`
	Order                 int    `json:"order"`
	Duration              int    `json:"duration"`
}

// WarClanStats is one side of a war log entry. Opponent sides omit attack
// counts and exp, hence the pointers.
type WarClanStats struct {
	Tag                   string  `json:"tag"`
	Name                  string  `json:"name"`
	ClanLevel             int     `json:"clanLevel"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
	Attacks               *int    `json:"attacks"`
	ExpEarned             *int    `json:"expEarned"`
}
