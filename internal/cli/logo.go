package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
  ____              _     _       _
 |  _ \  _____   __| |   (_)_ __ | | __
 | | | |/ _ \ \ / /| |   | | '_ \| |/ /
 | |_| |  __/\ V / | |___| | | | |   <
 |____/ \___| \_/  |_____|_|_| |_|_|\_\`

var (
	logoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	versionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printLogo(w io.Writer, version string) {
	fmt.Fprintln(w, logoStyle.Render(logo))
	fmt.Fprintln(w, versionStyle.Render("                                  version: "+version))
	fmt.Fprintln(w)
}
