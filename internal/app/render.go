package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			MarginBottom(1)

	ruleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

const ruleWidth = 34

func printPreview(w io.Writer, title, msg string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title+":"))
	fmt.Fprintln(w, boxStyle.Render(strings.TrimSpace(msg)))
}

func printStreamHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("----- "+title+" -----"))
}

func printStreamFooter(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, ruleStyle.Render(strings.Repeat("-", ruleWidth)))
}
