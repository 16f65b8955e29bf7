package app

import (
	"sort"

	"github.com/manhtruong03/real-time-quiz-sub002/internal/domain"
)

// CalculateUpdatedRankings derives cid → rank for every player in the
// session. Kicked and disconnected players keep their entry but get
// rank 0. Eligible players are ordered by total score descending and
// receive dense competition ranks: equal scores share a rank, and ties
// consume rank slots (scores 100,100,80 rank as 1,1,3).
//
// Ties are resolved by score equality alone; there is deliberately no
// secondary sort key. Pure function: the input map is never mutated.
func CalculateUpdatedRankings(players map[string]*domain.LivePlayerState) map[string]int {
	ranks := make(map[string]int, len(players))
	eligible := make([]*domain.LivePlayerState, 0, len(players))
	for cid, p := range players {
		if p.Eligible() {
			eligible = append(eligible, p)
		} else {
			ranks[cid] = 0
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].TotalScore > eligible[j].TotalScore
	})

	for i, p := range eligible {
		if i > 0 && p.TotalScore == eligible[i-1].TotalScore {
			ranks[p.CID] = ranks[eligible[i-1].CID]
			continue
		}
		ranks[p.CID] = i + 1
	}
	return ranks
}

// BuildLeaderboard projects ranked players into scoreboard rows sorted
// for display: ranked players first by rank, unranked players last,
// nickname as a stable display order within a rank.
func BuildLeaderboard(players map[string]*domain.LivePlayerState) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, domain.LeaderboardEntry{
			CID:        p.CID,
			Nickname:   p.Nickname,
			TotalScore: p.TotalScore,
			Rank:       p.Rank,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		ri, rj := entries[i].Rank, entries[j].Rank
		if ri == 0 {
			ri = len(entries) + 1
		}
		if rj == 0 {
			rj = len(entries) + 1
		}
		if ri != rj {
			return ri < rj
		}
		return entries[i].Nickname < entries[j].Nickname
	})
	return entries
}
