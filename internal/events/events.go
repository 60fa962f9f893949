package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	mb "github.com/saeidalz13/armada-backend/models/battleship"
)

const SubjectMatchFinished = "armada.match.finished"

type MatchFinished struct {
	GameUuid   string               `json:"game_uuid"`
	WinnerId   string               `json:"winner_id,omitempty"`
	FinishedAt time.Time            `json:"finished_at"`
	Tally      []mb.ContestantTally `json:"tally"`
}

type Publisher interface {
	PublishMatchFinished(ctx context.Context, event MatchFinished) error
	Close()
}

// NopPublisher drops every event. Used when no NATS_URL is configured.
type NopPublisher struct{}

func (NopPublisher) PublishMatchFinished(context.Context, MatchFinished) error { return nil }
func (NopPublisher) Close()                                                    {}

type NatsPublisher struct {
	conn *nats.Conn
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*NatsPublisher)(nil)
)

func NewNatsPublisher(url string) (*NatsPublisher, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("armada-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Println("nats disconnected:", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Println("nats reconnected:", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NatsPublisher{conn: conn}, nil
}

// NewPublisher returns a NopPublisher when url is empty.
func NewPublisher(url string) (Publisher, error) {
	if url == "" {
		return NopPublisher{}, nil
	}
	return NewNatsPublisher(url)
}

func (n *NatsPublisher) PublishMatchFinished(ctx context.Context, event MatchFinished) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.conn.Publish(SubjectMatchFinished, data)
}

func (n *NatsPublisher) Close() {
	if err := n.conn.Drain(); err != nil {
		log.Println("nats drain:", err)
		n.conn.Close()
	}
}

// NewMatchFinished snapshots the outcome of a finished game.
func NewMatchFinished(game *mb.Game) MatchFinished {
	return MatchFinished{
		GameUuid:   game.Uuid(),
		WinnerId:   game.WinnerId(),
		FinishedAt: game.FinishedAt(),
		Tally:      game.Tally(),
	}
}
