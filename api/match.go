package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/saeidalz13/armada-backend/db/sqlc"
	cerr "github.com/saeidalz13/armada-backend/internal/error"
	"github.com/saeidalz13/armada-backend/internal/events"
	mb "github.com/saeidalz13/armada-backend/models/battleship"
	mc "github.com/saeidalz13/armada-backend/models/connection"
	mm "github.com/saeidalz13/armada-backend/models/matchmaking"
	"github.com/saeidalz13/armada-backend/models/targeting"
)

// Match drives one game from formation to disposal: fleet requests,
// the start timer, automated turns and the final outcome. Game state
// lives in mb.Game; Match only holds timers and the bots.
//
// Lock order is Match.mu before the game lock. Nothing is sent while
// Match.mu is held.
type Match struct {
	server *Server
	game   *mb.Game

	mu         sync.Mutex
	bots       map[string]shotSelector
	startTimer *time.Timer
	cpuTimer   *time.Timer
	started    bool
	concluded  bool
	disposed   bool
}

// shotSelector picks and learns from the shots of one automated contestant.
type shotSelector interface {
	SelectTarget(opponents []mb.OpponentView, selfId string) (targeting.Decision, bool)
	RecordShot(targetId string, coord mb.Coordinates, hit, sunk bool)
	ClearTarget(targetId string)
}

func newMatch(s *Server, result mm.MatchResult) *Match {
	m := &Match{
		server: s,
		game:   result.Game,
		bots:   make(map[string]shotSelector, len(result.Automated)),
	}
	for _, a := range result.Automated {
		m.bots[a.Id] = targeting.NewCpu(s.rnd)
	}
	return m
}

func (m *Match) Game() *mb.Game {
	return m.game
}

// Tells every human about the match, hands out fleet templates and arms
// the placement window.
func (m *Match) announce() {
	roster := m.game.Roster()

	found := mc.NewMessage[mc.RespMatchFound](mc.CodeMatchFound)
	found.AddPayload(mc.RespMatchFound{GameUuid: m.game.Uuid(), Contestants: roster})
	m.broadcast(found)

	for _, c := range roster {
		if c.IsAutomated {
			continue
		}
		fleet, err := m.game.FleetOf(c.Id)
		if err != nil {
			continue
		}

		req := mc.NewMessage[mc.RespRequestFleet](mc.CodeRequestFleet)
		req.AddPayload(mc.RespRequestFleet{
			GameUuid:          m.game.Uuid(),
			FleetTag:          c.FleetTag,
			GridSize:          mb.GridSize,
			Fleet:             fleet,
			PlacementWindowMs: m.server.timings.PlacementWindow.Milliseconds(),
		})
		m.send(c.Id, req)
	}
	m.broadcastRoster()

	m.scheduleStart(m.server.timings.PlacementWindow)
}

func (m *Match) SubmitFleet(participantId string, placements []mb.VesselPlacement) error {
	if err := m.game.SubmitFleet(participantId, placements); err != nil {
		return err
	}
	if m.allHumansPlaced() {
		m.scheduleStart(m.server.timings.StartDelay)
	}
	return nil
}

func (m *Match) HumanShot(participantId, targetId string, coord mb.Coordinates) (mb.ShotOutcome, error) {
	outcome, err := m.game.ExecuteShot(participantId, targetId, coord)
	if err != nil {
		return mb.ShotOutcome{}, err
	}

	if outcome.Eliminated {
		m.mu.Lock()
		m.forgetTarget(outcome.TargetId)
		m.mu.Unlock()
	}

	m.afterShot(outcome)
	return outcome, nil
}

// Disconnect removes the participant and settles whatever the removal
// causes: a new turn holder, a winner, or an empty match.
func (m *Match) Disconnect(participantId string) {
	info, known := m.contestantInfo(participantId)
	if !m.game.RemoveContestant(participantId) {
		return
	}
	m.server.releaseSeat(participantId, m)

	m.mu.Lock()
	m.forgetTarget(participantId)
	concluded := m.concluded
	m.mu.Unlock()

	if known {
		msg := mc.NewMessage[mc.RespOtherPlayerDisconnected](mc.CodeOtherPlayerDisconnected)
		msg.AddPayload(mc.RespOtherPlayerDisconnected{ParticipantId: info.Id, DisplayName: info.Name})
		m.broadcast(msg)
	}
	if concluded {
		return
	}
	m.broadcastRoster()

	if len(m.game.HumanIds()) == 0 {
		log.Printf("no participants left in match %s", m.game.Uuid())
		m.dispose()
		return
	}

	switch m.game.Phase() {
	case mb.PhaseFinished:
		m.conclude()

	case mb.PhaseActive:
		m.pushState()
		m.scheduleCpuTurn()

	default:
		if m.game.ContestantCount() < mb.MinContestants {
			m.abort(cerr.ErrGameNotReady(m.game.Uuid(), m.game.Phase().String()))
			return
		}
		if m.allHumansPlaced() {
			m.scheduleStart(m.server.timings.StartDelay)
		}
	}
}

// Resync sends the current picture of the match to one participant,
// used when a participant identifies again on a new connection.
func (m *Match) Resync(participantId string) {
	found := mc.NewMessage[mc.RespMatchFound](mc.CodeMatchFound)
	found.AddPayload(mc.RespMatchFound{GameUuid: m.game.Uuid(), Contestants: m.game.Roster()})
	m.send(participantId, found)

	state := mc.NewMessage[mc.RespGameState](mc.CodeGameState)
	state.AddPayload(mc.RespGameState{State: m.game.StateFor(participantId)})
	m.send(participantId, state)
}

func (m *Match) scheduleStart(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.concluded {
		return
	}
	if m.startTimer != nil {
		m.startTimer.Stop()
	}
	m.startTimer = time.AfterFunc(delay, m.start)
}

func (m *Match) start() {
	m.mu.Lock()
	if m.started || m.concluded {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	if err := m.game.Start(); err != nil {
		log.Printf("failed to start game %s: %v", m.game.Uuid(), err)
		m.abort(err)
		return
	}

	currentTurnId, _ := m.game.CurrentTurnId()
	msg := mc.NewMessage[mc.RespStartGame](mc.CodeStartGame)
	msg.AddPayload(mc.RespStartGame{GameUuid: m.game.Uuid(), CurrentTurnId: currentTurnId})
	m.broadcast(msg)
	log.Printf("game started: %s", m.game.Uuid())

	m.pushState()
	m.scheduleCpuTurn()
}

// Arms the automated turn if an automated contestant holds the turn.
// A pending automated turn is replaced.
func (m *Match) scheduleCpuTurn() {
	turnId, ok := m.game.CurrentTurnId()
	if !ok || !m.game.IsAutomated(turnId) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.concluded {
		return
	}
	if m.cpuTimer != nil {
		m.cpuTimer.Stop()
	}
	m.cpuTimer = time.AfterFunc(m.server.timings.CpuTurnDelay, func() { m.playCpuTurn(turnId) })
}

func (m *Match) playCpuTurn(botId string) {
	m.mu.Lock()
	if m.concluded {
		m.mu.Unlock()
		return
	}

	bot, prs := m.bots[botId]
	if currentTurnId, ok := m.game.CurrentTurnId(); !prs || !ok || currentTurnId != botId {
		m.mu.Unlock()
		return
	}

	// the turn cannot pass without a shot, so a stuck cpu ends the match
	decision, ok := bot.SelectTarget(m.game.OpponentViews(botId), botId)
	if !ok {
		m.mu.Unlock()
		log.Printf("cpu %s found no target in game %s", botId, m.game.Uuid())
		m.abort(cerr.ErrNoTargetLeft(botId))
		return
	}

	outcome, err := m.game.ExecuteShot(botId, decision.TargetId, decision.Coordinates)
	if err != nil {
		m.mu.Unlock()
		log.Printf("cpu %s shot rejected in game %s: %v", botId, m.game.Uuid(), err)
		m.abort(err)
		return
	}

	bot.RecordShot(outcome.TargetId, outcome.Coordinates, outcome.Hit, outcome.Sunk)
	if outcome.Eliminated {
		m.forgetTarget(outcome.TargetId)
	}
	m.mu.Unlock()

	m.afterShot(outcome)
}

func (m *Match) afterShot(outcome mb.ShotOutcome) {
	msg := mc.NewMessage[mc.RespShotResult](mc.CodeShotResult)
	msg.AddPayload(mc.RespShotResult{GameUuid: m.game.Uuid(), Outcome: outcome})
	m.broadcast(msg)

	m.pushState()

	if outcome.Finished {
		m.conclude()
		return
	}
	m.scheduleCpuTurn()
}

// Reports the result of every remaining human, publishes the outcome
// and keeps the match around for the retention period.
func (m *Match) conclude() {
	if !m.stop() {
		return
	}

	winnerId := m.game.WinnerId()
	humans := m.game.HumanIds()

	ctx, cancel := context.WithTimeout(context.Background(), sqlc.QuerierCtxTimeout)
	defer cancel()

	for _, pid := range humans {
		if err := m.server.identity.ReportOutcome(ctx, pid, pid == winnerId); err != nil {
			log.Printf("failed to report outcome of %s: %v", pid, err)
		}
	}
	if err := m.server.publisher.PublishMatchFinished(ctx, events.NewMatchFinished(m.game)); err != nil {
		log.Printf("failed to publish outcome of %s: %v", m.game.Uuid(), err)
	}

	// participants may queue again as soon as they hear the outcome
	m.server.releaseSeats(m)

	msg := mc.NewMessage[mc.RespEndGame](mc.CodeEndGame)
	msg.AddPayload(mc.RespEndGame{GameUuid: m.game.Uuid(), WinnerId: winnerId, Tally: m.game.Tally()})
	m.broadcast(msg)

	if winnerId == "" {
		log.Printf("game finished without a winner: %s", m.game.Uuid())
	} else {
		log.Printf("game finished: %s winner: %s", m.game.Uuid(), winnerId)
	}

	time.AfterFunc(m.server.timings.MatchRetention, m.dispose)
}

func (m *Match) abort(reason error) {
	if !m.stop() {
		return
	}

	msg := mc.NewMessage[mc.RespEndGame](mc.CodeEndGame)
	msg.AddPayload(mc.RespEndGame{GameUuid: m.game.Uuid(), Tally: m.game.Tally()})
	msg.AddError(reason.Error(), "match aborted")
	m.broadcast(msg)

	m.dispose()
}

func (m *Match) dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.concluded = true
	m.stopTimers()
	m.mu.Unlock()

	m.server.GameManager.TerminateGame(m.game.Uuid())
	m.server.unregisterMatch(m)
	log.Printf("match disposed: %s", m.game.Uuid())
}

// Marks the match concluded. Returns false if it already was.
func (m *Match) stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.concluded {
		return false
	}
	m.concluded = true
	m.stopTimers()
	return true
}

func (m *Match) stopTimers() {
	if m.startTimer != nil {
		m.startTimer.Stop()
	}
	if m.cpuTimer != nil {
		m.cpuTimer.Stop()
	}
}

// forgetTarget drops hunt state aimed at a contestant that left or sank.
// Callers hold m.mu.
func (m *Match) forgetTarget(targetId string) {
	for _, bot := range m.bots {
		bot.ClearTarget(targetId)
	}
}

func (m *Match) allHumansPlaced() bool {
	humans := m.game.HumanIds()
	if len(humans) == 0 {
		return false
	}
	for _, pid := range humans {
		if !m.game.HasFleet(pid) {
			return false
		}
	}
	return true
}

func (m *Match) contestantInfo(participantId string) (mb.ContestantInfo, bool) {
	for _, c := range m.game.Roster() {
		if c.Id == participantId {
			return c, true
		}
	}
	return mb.ContestantInfo{}, false
}

func (m *Match) pushState() {
	for _, pid := range m.game.HumanIds() {
		msg := mc.NewMessage[mc.RespGameState](mc.CodeGameState)
		msg.AddPayload(mc.RespGameState{State: m.game.StateFor(pid)})
		m.send(pid, msg)
	}
}

func (m *Match) broadcastRoster() {
	msg := mc.NewMessage[mc.RespRosterUpdate](mc.CodeRosterUpdate)
	msg.AddPayload(mc.RespRosterUpdate{GameUuid: m.game.Uuid(), Contestants: m.game.Roster()})
	m.broadcast(msg)
}

func (m *Match) broadcast(msg interface{}) {
	if err := m.server.SessionManager.Communicate(m.game.HumanIds(), msg); err != nil {
		log.Printf("delivery failed in game %s: %v", m.game.Uuid(), err)
	}
}

func (m *Match) send(participantId string, msg interface{}) {
	if err := m.server.SessionManager.Communicate([]string{participantId}, msg); err != nil {
		log.Printf("delivery to %s failed: %v", participantId, err)
	}
}
