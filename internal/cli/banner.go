package cli

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
)

var signedOutTaglines = [...]string{
	"Your policies are waiting. They are very patient, but still.",
	"No session found. The extras catalogue will not browse itself.",
	"Renewal dates do not move just because you are logged out.",
	"Breakdown cover is only useful if you know you have it.",
	"A policy number is five digits and two letters. Yours are inside.",
	"Signed out. Your car, presumably, is still insured.",
}

var (
	bannerTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")).Bold(true)
	bannerQuote = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	bannerHint  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// printSignedOut is shown when carpolicy runs without a subcommand and no session.
func printSignedOut(w io.Writer) {
	msg := signedOutTaglines[rand.IntN(len(signedOutTaglines))]
	fmt.Fprintf(w, "\n%s\n\n%s\n\n%s\n%s\n\n", //nolint:errcheck
		bannerTitle.Render("CARPOLICY"),
		bannerQuote.Render(msg),
		bannerHint.Render("To sign in:  carpolicy login"),
		bannerHint.Render("New here?    carpolicy register"),
	)
}
