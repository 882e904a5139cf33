package formatter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/donovanmchenry/Chatify/internal/repositories"
	"github.com/donovanmchenry/Chatify/internal/services"
)

func track(name string, artists ...string) services.SpotifyTrack {
	t := services.SpotifyTrack{Name: name}
	for _, a := range artists {
		t.Artists = append(t.Artists, services.SpotifyArtist{Name: a})
	}
	return t
}

func TestRecommendations(t *testing.T) {
	t.Run("numbered lines", func(t *testing.T) {
		got := Recommendations([]services.SpotifyTrack{
			track("Song One", "Artist One"),
			track("Song Two", "Artist Two", "Guest"),
		})

		want := "1. \"Song One\" by Artist One\n2. \"Song Two\" by Artist Two, Guest"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := Recommendations(nil); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("no trailing newline", func(t *testing.T) {
		got := Recommendations([]services.SpotifyTrack{track("A", "X"), track("B", "Y"), track("C", "Z")})
		if strings.HasSuffix(got, "\n") || len(strings.Split(got, "\n")) != 3 {
			t.Errorf("unexpected layout %q", got)
		}
	})
}

func TestSessionExporters(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []repositories.SessionRecord{
		{ID: "sid-1", Authenticated: true, Messages: 4, CreatedAt: created, UpdatedAt: created.Add(time.Minute), ExpiresAt: created.Add(time.Hour)},
		{ID: "sid-2", CreatedAt: created, UpdatedAt: created, ExpiresAt: created.Add(time.Minute)},
	}

	t.Run("SessionsToCSV", func(t *testing.T) {
		data, err := SessionsToCSV(records)
		if err != nil {
			t.Fatalf("SessionsToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Authenticated,Messages,Created,Updated,Expires") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "sid-1,true,4,2024-03-01T12:00:00Z,2024-03-01T12:01:00Z,2024-03-01T13:00:00Z") {
			t.Errorf("CSV missing sid-1 row, got: %s", output)
		}
		if lines := strings.Split(strings.TrimSpace(output), "\n"); len(lines) != 3 {
			t.Errorf("expected 3 lines, got %d", len(lines))
		}
	})

	t.Run("SessionsToJSON", func(t *testing.T) {
		data, err := SessionsToJSON(records, created.Add(30*time.Minute))
		if err != nil {
			t.Fatalf("SessionsToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(decoded))
		}
		if decoded[0]["expired"] != false || decoded[1]["expired"] != true {
			t.Errorf("unexpected expiry flags: %v", decoded)
		}
	})
}
