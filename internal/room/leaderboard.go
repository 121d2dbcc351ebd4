package room

import "dropzone/internal/spatial"

// VictoryLeaderboard ranks a room's players by Victory Points using the
// same skip list the original game-wide leaderboard used, scoped down to
// a single room and a single stat (spec.md §3's Player.victoryPoints).
type VictoryLeaderboard struct {
	skipList *spatial.SkipList
}

// LeaderboardEntry is one player's rank and Victory Points total.
type LeaderboardEntry struct {
	PlayerID      string
	VictoryPoints int
	Rank          int
}

// NewVictoryLeaderboard returns an empty leaderboard.
func NewVictoryLeaderboard() *VictoryLeaderboard {
	return &VictoryLeaderboard{skipList: spatial.NewSkipList()}
}

// UpdatePlayer sets a player's Victory Points total. O(log n).
func (lb *VictoryLeaderboard) UpdatePlayer(playerID string, victoryPoints int) {
	lb.skipList.Insert(playerID, float64(victoryPoints))
}

// Remove drops a player from the leaderboard, e.g. on disconnect.
func (lb *VictoryLeaderboard) Remove(playerID string) {
	lb.skipList.Remove(playerID)
}

// Rank returns a player's 1-indexed rank (1 = highest Victory Points), or
// 0 if the player isn't on the leaderboard.
func (lb *VictoryLeaderboard) Rank(playerID string) int {
	return lb.skipList.GetRank(playerID)
}

// Top returns the top n players by Victory Points, for the extraction
// accomplishment screen.
func (lb *VictoryLeaderboard) Top(n int) []LeaderboardEntry {
	entries := lb.skipList.GetRange(1, n)
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntry{PlayerID: e.Key, VictoryPoints: int(e.Score), Rank: i + 1}
	}
	return out
}
