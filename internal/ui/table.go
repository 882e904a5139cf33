package ui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/donovanmchenry/Chatify/internal/repositories"
)

const timeLayout = "2006-01-02 15:04"

var sessionHeaders = []string{"ID", "AUTH", "MESSAGES", "UPDATED", "EXPIRES"}

// SessionsTable renders records as a bordered table. Expired rows are dimmed.
func SessionsTable(records []repositories.SessionRecord, now time.Time) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		auth := "no"
		if r.Authenticated {
			auth = "yes"
		}
		rows = append(rows, []string{
			r.ID,
			auth,
			strconv.Itoa(r.Messages),
			r.UpdatedAt.Local().Format(timeLayout),
			r.ExpiresAt.Local().Format(timeLayout),
		})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	dim := cell.Foreground(lipgloss.Color("#626262"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954"))).
		Headers(sessionHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case row >= 0 && row < len(records) && records[row].Expired(now):
				return dim
			default:
				return cell
			}
		})

	return t.String()
}
