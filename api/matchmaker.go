package api

import (
	"context"
	"log"
	"time"

	"github.com/saeidalz13/armada-backend/db/sqlc"
	cerr "github.com/saeidalz13/armada-backend/internal/error"
)

// RunMatchmaking forms matches from the pool every MatchmakingInterval
// until ctx is cancelled.
func (s *Server) RunMatchmaking(ctx context.Context) {
	ticker := time.NewTicker(s.timings.MatchmakingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.FormMatches()
		}
	}
}

// FormMatches drains the pool into as many matches as it can and returns
// how many were formed.
func (s *Server) FormMatches() int {
	formed := make([]*Match, 0, 2)

	s.mu.Lock()
	for {
		result, ok, err := s.Pool.TryForm()
		if err != nil {
			log.Println("failed to form match:", err)
			break
		}
		if !ok {
			break
		}

		m := newMatch(s, result)
		s.matches[result.Game.Uuid()] = m
		for _, h := range result.Humans {
			s.seats[h.ParticipantId] = m
		}
		formed = append(formed, m)
	}
	s.mu.Unlock()

	for _, m := range formed {
		s.recordGameCreated()
		m.announce()
	}
	return len(formed)
}

func (s *Server) recordGameCreated() {
	if s.analytics == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqlc.QuerierCtxTimeout)
	defer cancel()

	if err := s.analytics.IncrementGamesCreatedCount(ctx, s.serverIp); err != nil {
		// for now not killing the game for it
		log.Println(err)
	}
}

func (s *Server) MatchOf(participantId string) (*Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, prs := s.seats[participantId]
	return m, prs
}

func (s *Server) CountMatches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}

func (s *Server) releaseSeat(participantId string, m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seats[participantId] == m {
		delete(s.seats, participantId)
	}
}

func (s *Server) unregisterMatch(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.matches, m.game.Uuid())
	s.releaseSeatsLocked(m)
}

// Frees every participant of m to queue again.
func (s *Server) releaseSeats(m *Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseSeatsLocked(m)
}

func (s *Server) releaseSeatsLocked(m *Match) {
	for pid, seated := range s.seats {
		if seated == m {
			delete(s.seats, pid)
		}
	}
}

// joinPool enqueues a participant unless a match already holds its seat.
// The check and the enqueue share s.mu with FormMatches, so a participant
// never waits in the pool while seated.
func (s *Server) joinPool(participantId, sessionId, displayName, fleetTag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seated := s.seats[participantId]; seated {
		return 0, cerr.ErrPlayerAlreadyInGame(participantId)
	}
	return s.Pool.Enqueue(participantId, sessionId, displayName, fleetTag), nil
}

// leave takes a transport out of the pool, or its participant out of
// its match. Holding s.mu keeps it from racing FormMatches, so a
// participant is always found in exactly one of the two places.
func (s *Server) leave(sessionId, participantId string) {
	s.mu.Lock()
	dequeued := s.Pool.DequeueByTransport(sessionId)
	m, seated := s.seats[participantId]
	s.mu.Unlock()

	if dequeued {
		log.Printf("session %s left matchmaking queue", sessionId)
	}
	if participantId != "" && seated {
		m.Disconnect(participantId)
	}
}
