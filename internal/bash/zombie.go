package bash

import (
	"log"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
)

// sweepZombies scans the process list for defunct (zombie) shell
// processes belonging to the current user and issues kill -9, per
// SPEC_FULL.md §4.5 "Zombie sweep (multiplexed only)". Run by
// Multiplexed.Initialize, and so also on a session reset; it is not run
// after other errors. Failures here are logged and are non-fatal to
// session startup.
func sweepZombies() {
	u, err := user.Current()
	if err != nil {
		log.Printf("bash: zombie sweep: look up current user: %v", err)
		return
	}
	out, err := exec.Command("ps", "-u", u.Username, "-o", "pid,stat,comm").Output()
	if err != nil {
		log.Printf("bash: zombie sweep: list processes: %v", err)
		return
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, stat, comm := fields[0], fields[1], fields[2]
		if !strings.Contains(stat, "Z") {
			continue
		}
		if !strings.Contains(comm, "sh") {
			continue
		}
		if n, err := strconv.Atoi(pid); err == nil {
			if err := exec.Command("kill", "-9", strconv.Itoa(n)).Run(); err != nil {
				log.Printf("bash: zombie sweep: kill %d: %v", n, err)
			}
		}
	}
}
