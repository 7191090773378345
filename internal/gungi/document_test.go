package gungi

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func playedMatch(t *testing.T) *Match {
	t.Helper()
	m := NewMatch("round-trip")
	mustMove(t, m, Pos(6, 4, 0), Pos(5, 4, 0))
	mustMove(t, m, Pos(2, 0, 0), Pos(3, 0, 0))
	mustMove(t, m, Pos(5, 4, 0), Pos(4, 4, 0))
	mustMove(t, m, Pos(2, 4, 0), Pos(3, 4, 0))
	mv := mustMove(t, m, Pos(4, 4, 0), Pos(3, 4, 0))
	if !mv.IsCapture {
		t.Fatalf("setup: expected a capture")
	}
	return m
}

func TestExportImportRoundTrip(t *testing.T) {
	for name, m := range map[string]*Match{
		"fresh":  NewMatch("fresh"),
		"played": playedMatch(t),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := m.Export()
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			got, err := ImportMatch(data)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if !reflect.DeepEqual(m.State(), got.State()) {
				t.Fatalf("state differs after round trip\nwant %+v\ngot  %+v", m.State(), got.State())
			}
			again, err := got.Export()
			if err != nil {
				t.Fatalf("re-export: %v", err)
			}
			if !bytes.Equal(data, again) {
				t.Fatalf("documents differ after round trip")
			}
		})
	}
}

func TestImportedMatchKeepsPlaying(t *testing.T) {
	data, err := playedMatch(t).Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	m, err := ImportMatch(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if m.CurrentPlayer() != Player2 {
		t.Fatalf("current=%s", m.CurrentPlayer())
	}
	mv := mustMove(t, m, Pos(2, 8, 0), Pos(3, 8, 0))
	if mv.MoveNumber != 6 {
		t.Fatalf("move number %d, want 6", mv.MoveNumber)
	}
}

func TestImportCompletedMatch(t *testing.T) {
	m := matchWith(t, []blocker{
		{General, Player1, Pos(8, 3, 0)},
		{Marshal, Player1, Pos(8, 4, 0)},
		{Marshal, Player2, Pos(3, 3, 0)},
	})
	mustMove(t, m, Pos(8, 3, 0), Pos(3, 3, 0))
	data, err := m.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := ImportMatch(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if w, ok := got.Winner(); !ok || w != Player1 || got.Status() != StatusCompleted {
		t.Fatalf("winner=%v status=%s", w, got.Status())
	}
}

func TestImportRejectsMalformedDocuments(t *testing.T) {
	base, err := playedMatch(t).Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"missing field", func(doc map[string]any) { delete(doc, "currentPlayer") }},
		{"extra field", func(doc map[string]any) { doc["turn"] = 3 }},
		{"wrong version", func(doc map[string]any) { doc["version"] = 2 }},
		{"bad status", func(doc map[string]any) { doc["status"] = "PAUSED" }},
		{"bad player", func(doc map[string]any) { doc["currentPlayer"] = "player3" }},
		{"piece out of bounds", func(doc map[string]any) {
			piece(doc, 0)["position"].(map[string]any)["row"] = 9
		}},
		{"bad piece type", func(doc map[string]any) { piece(doc, 0)["type"] = "queen" }},
		{"missing piece field", func(doc map[string]any) { delete(piece(doc, 0), "moveCount") }},
		{"extra position field", func(doc map[string]any) {
			piece(doc, 0)["position"].(map[string]any)["layer"] = 0
		}},
		{"duplicate occupancy", func(doc map[string]any) {
			pos := piece(doc, 1)["position"]
			piece(doc, 0)["position"] = pos
		}},
		{"non-sequential move numbers", func(doc map[string]any) { move(doc, 1)["moveNumber"] = 5 }},
		{"missing move field", func(doc map[string]any) { delete(move(doc, 0), "timestamp") }},
		{"players do not alternate", func(doc map[string]any) { move(doc, 1)["player"] = "player1" }},
		{"captured list mismatch", func(doc map[string]any) { doc["capturedPieces"] = []any{} }},
		{"result without completion", func(doc map[string]any) { doc["result"] = "PLAYER1_WIN" }},
		{"completed without end", func(doc map[string]any) {
			doc["status"] = "COMPLETED"
			doc["result"] = "DRAW"
		}},
		{"null pieces", func(doc map[string]any) { doc["pieces"] = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc map[string]any
			if err := json.Unmarshal(base, &doc); err != nil {
				t.Fatalf("decode: %v", err)
			}
			tt.mutate(doc)
			data, err := json.Marshal(doc)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			m := NewMatch("target")
			mustMove(t, m, Pos(6, 0, 0), Pos(5, 0, 0))
			before, _ := m.Export()

			err = m.Import(data)
			if !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("Import err = %v, want invalid document", err)
			}
			after, _ := m.Export()
			if !bytes.Equal(before, after) {
				t.Fatalf("failed import modified the match")
			}
		})
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	m := NewMatch("m1")
	for _, in := range []string{"", "null", "[]", "{", `{"version":1}`} {
		if err := m.Import([]byte(in)); !errors.Is(err, ErrInvalidDocument) {
			t.Fatalf("Import(%q) = %v", in, err)
		}
	}
}

func piece(doc map[string]any, i int) map[string]any {
	return doc["pieces"].([]any)[i].(map[string]any)
}

func move(doc map[string]any, i int) map[string]any {
	return doc["moves"].([]any)[i].(map[string]any)
}
