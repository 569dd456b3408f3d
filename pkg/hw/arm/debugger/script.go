package debugger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// cmdSource plays a file of debugger commands through the dispatcher, one
// line at a time. Blank lines and #-comments are skipped, and playback
// stops as soon as a command leaves the paused state, so a script can end
// with continue or quit. Script lines never enter the history.
func cmdSource(s *Session, path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if s.state != StatePaused {
			break
		}
		s.execute(line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(s.out, err)
	}
}
