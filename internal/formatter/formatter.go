// package formatter renders recommendation replies and session listings as text, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/donovanmchenry/Chatify/internal/repositories"
	"github.com/donovanmchenry/Chatify/internal/services"
)

// Recommendations renders tracks as a numbered list, one line per track:
//
//  1. "Track" by Artist One, Artist Two
func Recommendations(tracks []services.SpotifyTrack) string {
	lines := make([]string, 0, len(tracks))
	for i, track := range tracks {
		lines = append(lines, fmt.Sprintf("%d. \"%s\" by %s", i+1, track.Name, strings.Join(track.ArtistNames(), ", ")))
	}
	return strings.Join(lines, "\n")
}

// SessionsToCSV converts session records to CSV with columns: ID, Authenticated, Messages, Created, Updated, Expires
func SessionsToCSV(records []repositories.SessionRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Authenticated", "Messages", "Created", "Updated", "Expires"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			r.ID,
			strconv.FormatBool(r.Authenticated),
			strconv.Itoa(r.Messages),
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
			r.ExpiresAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type sessionJSON struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	Messages      int       `json:"messages"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Expired       bool      `json:"expired"`
}

// SessionsToJSON converts session records to an indented JSON array, marking records expired at now.
func SessionsToJSON(records []repositories.SessionRecord, now time.Time) ([]byte, error) {
	out := make([]sessionJSON, 0, len(records))
	for _, r := range records {
		out = append(out, sessionJSON{
			ID:            r.ID,
			Authenticated: r.Authenticated,
			Messages:      r.Messages,
			CreatedAt:     r.CreatedAt.UTC(),
			UpdatedAt:     r.UpdatedAt.UTC(),
			ExpiresAt:     r.ExpiresAt.UTC(),
			Expired:       r.Expired(now),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sessions: %w", err)
	}
	return data, nil
}
