package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/park285/gungi-arena/internal/gateway"
	"github.com/park285/gungi-arena/internal/gungi"
)

type ProbeCmd struct {
	URL     string        `arg:"" default:"http://localhost:8080" help:"Gateway base URL"`
	Timeout time.Duration `default:"10s" help:"Overall probe timeout"`
	Play    bool          `help:"Also create a throwaway match and play one move"`
}

func (c *ProbeCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	client := gateway.NewClient(c.URL, gateway.WithTimeout(c.Timeout))
	h, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("/healthz: %w", err)
	}
	log.Printf("/healthz ok: matches=%d sessions=%d conns=%d", h.Matches, h.Sessions, h.Conns)

	conn, err := client.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	var st gungi.GameState
	if err := conn.Call(ctx, gateway.TypeCreateMatch, gateway.MatchRequest{}, &st); err != nil {
		return fmt.Errorf("create_match: %w", err)
	}
	log.Printf("ws ok: created match %s", st.ID)
	if !c.Play {
		return conn.Call(ctx, gateway.TypeCancelMatch, gateway.MatchRequest{MatchID: st.ID}, nil)
	}

	var moves []gungi.Move
	if err := conn.Call(ctx, gateway.TypeValidMoves, gateway.MatchRequest{MatchID: st.ID}, &moves); err != nil {
		return fmt.Errorf("valid_moves: %w", err)
	}
	if len(moves) == 0 {
		return fmt.Errorf("no legal moves in a fresh match")
	}
	req := gateway.MoveRequest{MatchID: st.ID, From: moves[0].From, To: moves[0].To}
	if err := conn.Call(ctx, gateway.TypeMakeMove, req, nil); err != nil {
		return fmt.Errorf("make_move: %w", err)
	}
	log.Printf("ws ok: played %s -> %s (%d legal moves)", req.From, req.To, len(moves))
	return conn.Call(ctx, gateway.TypeCancelMatch, gateway.MatchRequest{MatchID: st.ID}, nil)
}
