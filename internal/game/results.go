package game

import (
	"math"
	"sort"

	"livequiz-service/internal/domain"
)

// QuestionResults reports every joined player's outcome for one question.
// While the question is still live it reflects answers received so far; the
// read is side-effect free, so polling frequency never affects correctness.
func (s *Session) QuestionResults(questionID string) (domain.QuestionResults, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	question, ok := s.quiz.QuestionByID(questionID)
	if !ok {
		return domain.QuestionResults{}, domain.Errorf(domain.KindNotFound, "question not found in this quiz")
	}
	if s.status == domain.StatusLobby {
		return domain.QuestionResults{}, domain.Errorf(domain.KindInvalidState, "game has not started")
	}

	results := domain.QuestionResults{
		QuestionID:    question.ID,
		QuestionText:  question.Text,
		CorrectAnswer: question.CorrectAnswer,
		TotalPlayers:  len(s.players),
	}

	rows := make([]domain.PlayerQuestionResult, 0, len(s.players))
	for _, p := range s.players {
		row := domain.PlayerQuestionResult{
			PlayerID:   p.ID,
			Name:       p.Name,
			RollNumber: p.RollNumber,
		}
		if answer, answered := s.answers[answerKey{questionID: questionID, playerID: p.ID}]; answered {
			row.Answered = true
			row.Answer = answer.Text
			row.Correct = answer.Correct
			row.ElapsedSeconds = answer.ElapsedSeconds
			row.Points = answer.Points
			results.AnsweredCount++
			if answer.Correct {
				results.CorrectCount++
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	results.Players = rows
	return results, nil
}

// FinalLeaderboard is valid only on an ended session and always returns the
// board frozen at End time.
func (s *Session) FinalLeaderboard() ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status != domain.StatusEnded {
		return nil, domain.Errorf(domain.KindInvalidState, "leaderboard is final only after the game ends")
	}
	return s.finalBoard, nil
}

// Leaderboard returns the live standings ordered by the tie-break rule.
func (s *Session) Leaderboard() []domain.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == domain.StatusEnded {
		return s.finalBoard
	}
	return s.leaderboardLocked()
}

// leaderboardLocked orders players by score descending, then total elapsed
// time ascending (speed wins ties), then player ID ascending so the order is
// a deterministic total order.
func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.players))
	for _, p := range s.players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:       p.ID,
			Name:           p.Name,
			RollNumber:     p.RollNumber,
			Score:          p.Score,
			CorrectAnswers: s.correctCountLocked(p.ID),
			TotalElapsed:   s.elapsedTotals[p.ID],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TotalElapsed != entries[j].TotalElapsed {
			return entries[i].TotalElapsed < entries[j].TotalElapsed
		}
		return entries[i].PlayerID < entries[j].PlayerID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *Session) correctCountLocked(playerID string) int {
	count := 0
	for key, answer := range s.answers {
		if key.playerID == playerID && answer.Correct {
			count++
		}
	}
	return count
}

// Summary reports every player's whole-game outcome, ordered like the
// leaderboard. Valid once the game has started.
func (s *Session) Summary() (domain.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.status == domain.StatusLobby {
		return domain.GameSummary{}, domain.Errorf(domain.KindInvalidState, "game has not started")
	}

	total := len(s.quiz.Questions)
	board := s.finalBoard
	if s.status != domain.StatusEnded {
		board = s.leaderboardLocked()
	}

	players := make([]domain.PlayerSummary, 0, len(board))
	for _, entry := range board {
		accuracy := 0.0
		if total > 0 {
			accuracy = math.Round(float64(entry.CorrectAnswers)/float64(total)*10000) / 100
		}
		players = append(players, domain.PlayerSummary{
			PlayerID:       entry.PlayerID,
			Name:           entry.Name,
			RollNumber:     entry.RollNumber,
			Score:          entry.Score,
			CorrectAnswers: entry.CorrectAnswers,
			TotalQuestions: total,
			Accuracy:       accuracy,
		})
	}

	return domain.GameSummary{
		PIN:            s.pin,
		QuizTitle:      s.quiz.Title,
		Status:         s.status,
		TotalQuestions: total,
		Players:        players,
	}, nil
}

// CertificateStatus computes eligibility for one player. Accuracy is taken
// over the quiz's full question count, so unanswered questions count as
// incorrect. Eligibility additionally requires a finished game and a
// configured template.
func (s *Session) CertificateStatus(playerID string) (domain.CertificateStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, ok := s.players[playerID]
	if !ok {
		return domain.CertificateStatus{}, domain.Errorf(domain.KindNotFound, "player not found in this game")
	}

	total := len(s.quiz.Questions)
	correct := s.correctCountLocked(playerID)
	accuracy := 0.0
	if total > 0 {
		accuracy = math.Round(float64(correct)/float64(total)*10000) / 100
	}

	finished := s.status == domain.StatusEnded
	return domain.CertificateStatus{
		PlayerID:       player.ID,
		PlayerName:     player.Name,
		CorrectAnswers: correct,
		TotalQuestions: total,
		Accuracy:       accuracy,
		Threshold:      s.certificate.Threshold,
		GameFinished:   finished,
		TemplateReady:  s.certificate.TemplateConfigured,
		Eligible:       finished && s.certificate.TemplateConfigured && accuracy >= float64(s.certificate.Threshold),
	}, nil
}

func sortRoster(roster []RosterEntry) {
	sort.Slice(roster, func(i, j int) bool { return roster[i].Name < roster[j].Name })
}

func sortPlayersByJoin(players []domain.Player) {
	sort.Slice(players, func(i, j int) bool {
		if !players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].JoinedAt.Before(players[j].JoinedAt)
		}
		return players[i].ID < players[j].ID
	})
}
