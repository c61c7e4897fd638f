package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	freshStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	soonStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")).Bold(true)
	expiredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
)

func statusStyle(st extract.ExpiryStatus) lipgloss.Style {
	switch st {
	case extract.StatusExpired:
		return expiredStyle
	case extract.StatusExpiringSoon:
		return soonStyle
	case extract.StatusFresh:
		return freshStyle
	default:
		return mutedStyle
	}
}

// daysLeftText mirrors the wording of the web UI.
func daysLeftText(days int) string {
	switch {
	case days < 0:
		return fmt.Sprintf("expired %d day(s) ago", -days)
	case days == 0:
		return "expires today"
	default:
		return fmt.Sprintf("%d day(s) left", days)
	}
}

const nameWidth = 32

// printProducts renders products as an aligned, colour-coded table.
func printProducts(w io.Writer, title string, products []*entity.Product, now time.Time) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if len(products) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no products"))
		return
	}
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		headerStyle.Render(pad("NAME", nameWidth)),
		headerStyle.Render(pad("EXPIRES", 10)),
		headerStyle.Render(pad("STATUS", 13)),
		headerStyle.Render("DAYS"),
	)
	for _, p := range products {
		date, status, days := "-", "Unknown", ""
		st, ok := p.Status(now)
		if ok {
			date = p.ExpiryDate.String()
			status = string(st)
			n, _ := p.DaysLeft(now)
			days = daysLeftText(n)
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			pad(truncate(p.DisplayName(), nameWidth), nameWidth),
			pad(date, 10),
			statusStyle(st).Render(pad(status, 13)),
			mutedStyle.Render(days),
		)
	}
	fmt.Fprintln(w, mutedStyle.Render(strconv.Itoa(len(products))+" product(s)"))
}

func pad(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
