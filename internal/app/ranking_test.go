package app_test

import (
	"testing"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/app"
	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

func player(cid string, score int, status domain.PlayerStatus, connected bool) *domain.LivePlayerState {
	return &domain.LivePlayerState{
		CID:          cid,
		Nickname:     cid,
		TotalScore:   score,
		PlayerStatus: status,
		IsConnected:  connected,
	}
}

func TestDenseCompetitionRanking(t *testing.T) {
	players := map[string]*domain.LivePlayerState{
		"a": player("a", 100, domain.PlayerActive, true),
		"b": player("b", 100, domain.PlayerActive, true),
		"c": player("c", 80, domain.PlayerActive, true),
	}

	ranks := app.CalculateUpdatedRankings(players)

	if ranks["a"] != 1 || ranks["b"] != 1 {
		t.Fatalf("tied leaders must share rank 1, got a=%d b=%d", ranks["a"], ranks["b"])
	}
	if ranks["c"] != 3 {
		t.Fatalf("ties consume rank slots: expected c at 3, got %d", ranks["c"])
	}
}

func TestKickedAndDisconnectedGetRankZero(t *testing.T) {
	players := map[string]*domain.LivePlayerState{
		"a": player("a", 500, domain.PlayerKicked, false),
		"b": player("b", 300, domain.PlayerActive, false), // disconnected
		"c": player("c", 100, domain.PlayerActive, true),
	}

	ranks := app.CalculateUpdatedRankings(players)

	if ranks["a"] != 0 {
		t.Fatalf("kicked player must rank 0 regardless of score, got %d", ranks["a"])
	}
	if ranks["b"] != 0 {
		t.Fatalf("disconnected player must rank 0, got %d", ranks["b"])
	}
	if ranks["c"] != 1 {
		t.Fatalf("only eligible player must rank 1, got %d", ranks["c"])
	}
}

func TestRankingIsPure(t *testing.T) {
	players := map[string]*domain.LivePlayerState{
		"a": player("a", 10, domain.PlayerActive, true),
	}

	_ = app.CalculateUpdatedRankings(players)

	if players["a"].Rank != 0 {
		t.Fatalf("input map must not be mutated, rank became %d", players["a"].Rank)
	}
}

func TestBuildLeaderboardOrder(t *testing.T) {
	players := map[string]*domain.LivePlayerState{
		"a": {CID: "a", Nickname: "Alice", TotalScore: 50, Rank: 2, PlayerStatus: domain.PlayerActive, IsConnected: true},
		"b": {CID: "b", Nickname: "Bob", TotalScore: 100, Rank: 1, PlayerStatus: domain.PlayerActive, IsConnected: true},
		"k": {CID: "k", Nickname: "Kicked", TotalScore: 999, Rank: 0, PlayerStatus: domain.PlayerKicked},
	}

	entries := app.BuildLeaderboard(players)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].CID != "b" || entries[1].CID != "a" {
		t.Fatalf("expected ranked order b,a got %s,%s", entries[0].CID, entries[1].CID)
	}
	if entries[2].CID != "k" {
		t.Fatalf("unranked player must sort last, got %s", entries[2].CID)
	}
}
