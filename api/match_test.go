package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	cerr "github.com/saeidalz13/armada-backend/internal/error"
	mb "github.com/saeidalz13/armada-backend/models/battleship"
	mc "github.com/saeidalz13/armada-backend/models/connection"
	"github.com/saeidalz13/armada-backend/models/targeting"
)

func stackedFleet(fleet []mb.VesselSpec) []mb.VesselPlacement {
	placements := make([]mb.VesselPlacement, 0, len(fleet))
	for i, v := range fleet {
		placements = append(placements, mb.VesselPlacement{Name: v.Name, Length: v.Length, X: 0, Y: i, Horizontal: true})
	}
	return placements
}

// playUntilEnd attacks whenever the pushed state hands conn the turn and
// returns the final outcome.
func playUntilEnd(t *testing.T, conn *websocket.Conn, selfId string) mc.Message[mc.RespEndGame] {
	t.Helper()

	for i := 0; i < 5000; i++ {
		code, payload := readRaw(t, conn)

		switch code {
		case mc.CodeGameState:
			msg := decode[mc.RespGameState](t, payload)
			state := msg.Payload.State
			if state.Phase != mb.PhaseActive || state.CurrentTurnId != selfId {
				continue
			}
			targetId, coord, ok := pickTarget(state, selfId)
			if !ok {
				t.Fatal("no target left in an active game")
			}
			writeMessage(t, conn, mc.CodeAttack, mc.ReqAttack{TargetId: targetId, X: coord.X, Y: coord.Y})

		case mc.CodeEndGame:
			return decode[mc.RespEndGame](t, payload)
		}
	}

	t.Fatal("game did not end")
	return mc.Message[mc.RespEndGame]{}
}

func TestSoloMatchAgainstCpus(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)
	me := env.identify(t, conn, "", "alice")
	env.joinQueue(t, conn, "UK")

	if n := env.server.FormMatches(); n != 1 {
		t.Fatalf("expected one match\tgot: %d", n)
	}
	if env.analytics.Count() != 1 {
		t.Fatalf("expected one created game recorded\tgot: %d", env.analytics.Count())
	}

	found := readMessage[mc.RespMatchFound](t, conn, mc.CodeMatchFound)
	if len(found.Payload.Contestants) != mb.MaxContestants {
		t.Fatalf("expected %d contestants\tgot: %d", mb.MaxContestants, len(found.Payload.Contestants))
	}
	for i, c := range found.Payload.Contestants {
		if (i == 0) == c.IsAutomated {
			t.Fatalf("unexpected seat %d: %+v", i, c)
		}
	}

	request := readMessage[mc.RespRequestFleet](t, conn, mc.CodeRequestFleet)
	if request.Payload.FleetTag != "UK" || len(request.Payload.Fleet) != 5 || request.Payload.GridSize != mb.GridSize {
		t.Fatalf("unexpected fleet request: %+v", request.Payload)
	}

	runTests(t, conn, []Test[mc.ReqSubmitFleet, mc.RespFleetAccepted]{
		{
			name:         "overlapping fleet",
			reqCode:      mc.CodeSubmitFleet,
			reqPayload:   mc.ReqSubmitFleet{Vessels: overlapping(request.Payload.Fleet)},
			expectedCode: mc.CodeFleetAccepted,
			expectErr:    true,
		},
		{
			name:         "valid fleet",
			reqCode:      mc.CodeSubmitFleet,
			reqPayload:   mc.ReqSubmitFleet{Vessels: stackedFleet(request.Payload.Fleet)},
			expectedCode: mc.CodeFleetAccepted,
			check: func(t *testing.T, resp mc.Message[mc.RespFleetAccepted]) {
				if resp.Payload.GameUuid != found.Payload.GameUuid {
					t.Fatalf("expected game %s\tgot: %s", found.Payload.GameUuid, resp.Payload.GameUuid)
				}
			},
		},
	})

	start := readMessage[mc.RespStartGame](t, conn, mc.CodeStartGame)
	if start.Payload.CurrentTurnId != me.ParticipantId {
		t.Fatalf("expected first seat to open\tgot: %s", start.Payload.CurrentTurnId)
	}

	end := playUntilEnd(t, conn, me.ParticipantId)
	if end.Error != nil {
		t.Fatalf("unexpected error: %+v", end.Error)
	}
	if end.Payload.WinnerId == "" || len(end.Payload.Tally) != mb.MaxContestants {
		t.Fatalf("unexpected outcome: %+v", end.Payload)
	}
	for _, tally := range end.Payload.Tally {
		if tally.Accuracy != mb.Accuracy(tally.ShotsLanded, tally.ShotsTaken) {
			t.Fatalf("inconsistent accuracy: %+v", tally)
		}
		if tally.Id == me.ParticipantId && tally.ShotsTaken == 0 {
			t.Fatal("expected the opening seat to have fired")
		}
	}

	player, err := env.server.identity.ResolveParticipant(context.Background(), me.ParticipantId)
	if err != nil {
		t.Fatal(err)
	}
	if player.GamesPlayed != 1 || player.Wins+player.Losses != 1 {
		t.Fatalf("expected one recorded game\tgot: %+v", player)
	}

	published := env.publisher.Events()
	if len(published) != 1 || published[0].GameUuid != found.Payload.GameUuid {
		t.Fatalf("expected one published outcome\tgot: %+v", published)
	}

	eventually(t, "match disposal", func() bool {
		return env.server.CountMatches() == 0 && env.server.GameManager.CountGames() == 0
	})
}

func overlapping(fleet []mb.VesselSpec) []mb.VesselPlacement {
	placements := stackedFleet(fleet)
	placements[1].Y = placements[0].Y
	return placements
}

type duel struct {
	env          *testEnv
	aConn, bConn *websocket.Conn
	a, b         mc.RespIdentified
	gameUuid     string
}

// Two humans matched together; nobody submits, so the placement window
// auto-places both fleets.
func newDuel(t *testing.T) *duel {
	t.Helper()

	timings := testTimings
	timings.PlacementWindow = time.Millisecond * 100
	env := newTestEnv(t, WithTimings(timings))

	d := &duel{env: env, aConn: env.dial(t), bConn: env.dial(t)}
	d.a = env.identify(t, d.aConn, "", "alice")
	d.b = env.identify(t, d.bConn, "", "bob")
	env.joinQueue(t, d.aConn, "")
	if size := env.joinQueue(t, d.bConn, "US"); size != 2 {
		t.Fatalf("expected queue size 2\tgot: %d", size)
	}

	if n := env.server.FormMatches(); n != 1 {
		t.Fatalf("expected one match\tgot: %d", n)
	}

	for _, conn := range []*websocket.Conn{d.aConn, d.bConn} {
		found := readMessage[mc.RespMatchFound](t, conn, mc.CodeMatchFound)
		if len(found.Payload.Contestants) != 2 {
			t.Fatalf("expected two contestants\tgot: %+v", found.Payload.Contestants)
		}
		d.gameUuid = found.Payload.GameUuid
	}
	for _, conn := range []*websocket.Conn{d.aConn, d.bConn} {
		start := readMessage[mc.RespStartGame](t, conn, mc.CodeStartGame)
		if start.Payload.CurrentTurnId != d.a.ParticipantId {
			t.Fatalf("expected %s to open\tgot: %s", d.a.ParticipantId, start.Payload.CurrentTurnId)
		}
	}
	return d
}

func TestDuelShotsAndDisconnect(t *testing.T) {
	d := newDuel(t)

	runTests(t, d.bConn, []Test[mc.ReqAttack, mc.RespShotResult]{
		{
			name:         "out of turn",
			reqCode:      mc.CodeAttack,
			reqPayload:   mc.ReqAttack{TargetId: d.a.ParticipantId, X: 0, Y: 0},
			expectedCode: mc.CodeShotResult,
			expectErr:    true,
		},
	})
	runTests(t, d.aConn, []Test[mc.ReqAttack, mc.RespShotResult]{
		{
			name:         "own grid",
			reqCode:      mc.CodeAttack,
			reqPayload:   mc.ReqAttack{TargetId: d.a.ParticipantId, X: 0, Y: 0},
			expectedCode: mc.CodeShotResult,
			expectErr:    true,
		},
		{
			name:         "off the grid",
			reqCode:      mc.CodeAttack,
			reqPayload:   mc.ReqAttack{TargetId: d.b.ParticipantId, X: mb.GridSize, Y: 0},
			expectedCode: mc.CodeShotResult,
			expectErr:    true,
		},
		{
			name:         "valid shot",
			reqCode:      mc.CodeAttack,
			reqPayload:   mc.ReqAttack{TargetId: d.b.ParticipantId, X: 3, Y: 3},
			expectedCode: mc.CodeShotResult,
			check: func(t *testing.T, resp mc.Message[mc.RespShotResult]) {
				o := resp.Payload.Outcome
				if o.ShooterId != d.a.ParticipantId || o.TargetId != d.b.ParticipantId || o.NextTurnId != d.b.ParticipantId {
					t.Fatalf("unexpected outcome: %+v", o)
				}
			},
		},
	})

	shot := readMessage[mc.RespShotResult](t, d.bConn, mc.CodeShotResult)
	if shot.Error != nil || shot.Payload.Outcome.Coordinates != mb.NewCoordinates(3, 3) {
		t.Fatalf("defender expected the shot broadcast\tgot: %+v", shot)
	}

	state := readMessage[mc.RespGameState](t, d.bConn, mc.CodeGameState)
	for _, c := range state.Payload.State.Contestants {
		if c.Id == d.a.ParticipantId {
			for _, row := range c.Board {
				for _, cell := range row {
					if cell == mb.CellOccupied {
						t.Fatal("opponent grid must be filtered")
					}
				}
			}
		}
	}

	d.aConn.Close()

	left := readMessage[mc.RespOtherPlayerDisconnected](t, d.bConn, mc.CodeOtherPlayerDisconnected)
	if left.Payload.ParticipantId != d.a.ParticipantId || left.Payload.DisplayName != "alice" {
		t.Fatalf("unexpected disconnect notice: %+v", left.Payload)
	}

	end := readMessage[mc.RespEndGame](t, d.bConn, mc.CodeEndGame)
	if end.Payload.WinnerId != d.b.ParticipantId {
		t.Fatalf("expected %s to win\tgot: %s", d.b.ParticipantId, end.Payload.WinnerId)
	}

	player, err := d.env.server.identity.ResolveParticipant(context.Background(), d.b.ParticipantId)
	if err != nil {
		t.Fatal(err)
	}
	if player.Wins != 1 || player.GamesPlayed != 1 {
		t.Fatalf("expected a recorded win\tgot: %+v", player)
	}

	// seats are released as soon as the match ends
	d.env.joinQueue(t, d.bConn, "")
}

func TestReconnectKeepsSeat(t *testing.T) {
	d := newDuel(t)

	again := d.env.dial(t)
	d.env.identify(t, again, d.b.ParticipantId, "")

	found := readMessage[mc.RespMatchFound](t, again, mc.CodeMatchFound)
	if found.Payload.GameUuid != d.gameUuid {
		t.Fatalf("expected resync of %s\tgot: %s", d.gameUuid, found.Payload.GameUuid)
	}
	state := readMessage[mc.RespGameState](t, again, mc.CodeGameState)
	if state.Payload.State.Phase != mb.PhaseActive {
		t.Fatalf("expected active game\tgot: %s", state.Payload.State.Phase)
	}

	// the stale connection no longer speaks for bob
	d.bConn.Close()
	time.Sleep(time.Millisecond * 50)

	m, seated := d.env.server.MatchOf(d.b.ParticipantId)
	if !seated {
		t.Fatal("expected bob to keep the seat")
	}
	if m.Game().ContestantCount() != 2 {
		t.Fatalf("expected both contestants\tgot: %d", m.Game().ContestantCount())
	}

	writeMessage(t, d.aConn, mc.CodeAttack, mc.ReqAttack{TargetId: d.b.ParticipantId, X: 0, Y: 0})
	shot := readMessage[mc.RespShotResult](t, again, mc.CodeShotResult)
	if shot.Payload.Outcome.ShooterId != d.a.ParticipantId {
		t.Fatalf("expected shot broadcast on the new connection\tgot: %+v", shot.Payload)
	}
}

func TestJoinQueueWhileSeated(t *testing.T) {
	d := newDuel(t)

	writeMessage(t, d.aConn, mc.CodeJoinQueue, mc.ReqJoinQueue{})
	resp := readMessage[mc.RespQueueJoined](t, d.aConn, mc.CodeQueueJoined)
	if resp.Error == nil {
		t.Fatal("expected seated participant to be refused")
	}
	if d.env.server.Pool.Size() != 0 {
		t.Fatal("pool must stay empty")
	}
}

func TestRejoinWhileMatchesForm(t *testing.T) {
	timings := testTimings
	timings.PlacementWindow = time.Hour
	env := newTestEnv(t, WithTimings(timings))
	s := env.server

	if _, err := s.joinPool("p", "s1", "pat", ""); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = s.joinPool("p", "s1", "pat", "")
		}
	}()
	for i := 0; i < 200; i++ {
		s.FormMatches()
	}
	wg.Wait()
	s.FormMatches()

	s.mu.RLock()
	defer s.mu.RUnlock()

	holding := 0
	for _, m := range s.matches {
		for _, c := range m.game.Roster() {
			if c.Id == "p" {
				holding++
			}
		}
	}
	if holding != 1 {
		t.Fatalf("expected p in exactly one match	got: %d", holding)
	}
	if s.Pool.Contains("p") {
		t.Fatal("a seated participant must not wait in the pool")
	}
	if _, err := s.joinPool("p", "s1", "pat", ""); !errors.Is(err, cerr.ErrDuplicateParticipant) {
		t.Fatalf("expected seated participant to be refused	got: %v", err)
	}
}

// Never finds a target.
type blindSelector struct{}

func (blindSelector) SelectTarget([]mb.OpponentView, string) (targeting.Decision, bool) {
	return targeting.Decision{}, false
}
func (blindSelector) RecordShot(string, mb.Coordinates, bool, bool) {}
func (blindSelector) ClearTarget(string)                            {}

func TestStuckCpuAbortsMatch(t *testing.T) {
	timings := testTimings
	timings.PlacementWindow = time.Hour
	env := newTestEnv(t, WithTimings(timings))
	s := env.server

	if _, err := s.joinPool("p", "s1", "pat", ""); err != nil {
		t.Fatal(err)
	}
	if formed := s.FormMatches(); formed != 1 {
		t.Fatalf("expected one match\tgot: %d", formed)
	}
	m, seated := s.MatchOf("p")
	if !seated {
		t.Fatal("expected p to be seated")
	}

	m.mu.Lock()
	var botId string
	for id := range m.bots {
		m.bots[id] = blindSelector{}
		botId = id
	}
	m.mu.Unlock()

	m.start()
	if turnId, _ := m.game.CurrentTurnId(); turnId != "p" {
		t.Fatalf("expected p to move first\tgot: %s", turnId)
	}
	if _, err := m.HumanShot("p", botId, mb.NewCoordinates(0, 0)); err != nil {
		t.Fatal(err)
	}

	eventually(t, "match abort", func() bool {
		return s.CountMatches() == 0 && s.GameManager.CountGames() == 0
	})
	if _, seated := s.MatchOf("p"); seated {
		t.Fatal("aborted match must release its seats")
	}
}

func TestLoneSurvivorOfPlacementAborts(t *testing.T) {
	timings := testTimings
	timings.PlacementWindow = time.Hour
	env := newTestEnv(t, WithTimings(timings))

	aConn, bConn := env.dial(t), env.dial(t)
	env.identify(t, aConn, "", "alice")
	env.identify(t, bConn, "", "bob")
	env.joinQueue(t, aConn, "")
	env.joinQueue(t, bConn, "")
	env.server.FormMatches()

	readMessage[mc.RespRequestFleet](t, bConn, mc.CodeRequestFleet)
	aConn.Close()

	end := readMessage[mc.RespEndGame](t, bConn, mc.CodeEndGame)
	if end.Error == nil || end.Payload.WinnerId != "" {
		t.Fatalf("expected aborted match\tgot: %+v", end)
	}
	eventually(t, "match disposal", func() bool { return env.server.CountMatches() == 0 })

	if !strings.HasPrefix(end.Error.ErrorDetails, cerr.ErrPhaseViolation.Error()) {
		t.Fatalf("unexpected abort reason: %s", end.Error.ErrorDetails)
	}
}
