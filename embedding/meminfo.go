package embedding

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// freeMemoryMB reads /proc/meminfo's MemAvailable entry. No library in
// the example pack does host memory detection, so this is a justified
// stdlib-only helper (see DESIGN.md): it is Linux-specific, which is an
// acceptable scope narrowing for a service daemon's deployment target.
// A read failure (missing /proc, non-Linux host) returns false rather
// than guessing, and callers fall back to the constrained load strategy.
func freeMemoryMB() (mb int, ok bool) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemAvailable:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, false
		}
		return kb / 1024, true
	}
	return 0, false
}
