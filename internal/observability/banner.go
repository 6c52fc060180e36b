package observability

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"
)

var startTime = time.Now()

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
	colorPurple   = "\033[35m"
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

func PrintBanner(w io.Writer) {
	banner := `
  ___ ___ _____      __ ___ _      _   _  _
 / __| _ \ __\ \    / /| _ \ |    /_\ | \| |
| (__|   / _| \ \/\/ / |  _/ |__ / _ \| .' |
 \___|_|_\___| \_/\_/  |_| |____/_/ \_\_|\_|

      >> AGENTIC PROJECT PLANNER <<
`

	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

// StatusLine renders one line describing the process state.
func StatusLine() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime).Round(time.Second)
	memMB := float64(m.Alloc) / 1024 / 1024
	runs, stage, project, lastHB := GetStatus()

	pulse := "HEALTHY"
	pulseColor := colorNeonCyan
	switch delta := time.Since(lastHB); {
	case delta >= 90*time.Second:
		pulse = "OFFLINE"
		pulseColor = colorNeonMag
	case delta >= 40*time.Second:
		pulse = "LAGGING"
		pulseColor = colorPurple
	}

	activity := "idle"
	if runs > 0 {
		if len(project) > 25 {
			project = project[:22] + "..."
		}
		activity = fmt.Sprintf("%d run(s), stage=%s, project=%q", runs, stage, project)
	}

	return fmt.Sprintf("%s[ %-7s ]%s %s | up %v | %.1fMB", pulseColor, pulse, colorReset, activity, uptime, memMB)
}

// PrintLiveStatus logs the current status line.
func PrintLiveStatus() {
	log.Println(StatusLine())
}
