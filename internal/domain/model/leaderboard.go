package model

// LeaderboardEntry is derived from the submission history on every read;
// it has no lifecycle of its own.
type LeaderboardEntry struct {
	Username            string `json:"username"`
	TotalSubmissions    int    `json:"totalSubmissions"`
	AcceptedSubmissions int    `json:"acceptedSubmissions"`
	TotalProblemsSolved int    `json:"totalProblemsSolved"`
}
