package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/process"
)

// describeHolder reports which process last recorded itself in the lock
// file. It is used only to make a stuck wait visible.
func describeHolder(lockPath string) string {
	content, err := os.ReadFile(lockPath)
	if err != nil {
		return "unknown holder"
	}

	pid, err := strconv.ParseInt(strings.TrimSpace(string(content)), 10, 32)
	if err != nil || pid <= 0 {
		return "unknown holder"
	}

	alive, err := process.PidExists(int32(pid))
	if err != nil {
		return fmt.Sprintf("pid %d", pid)
	}

	if !alive {
		return fmt.Sprintf("pid %d (exited)", pid)
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return fmt.Sprintf("pid %d", pid)
	}

	name, err := proc.Name()
	if err != nil || name == "" {
		return fmt.Sprintf("pid %d", pid)
	}

	return fmt.Sprintf("pid %d (%s)", pid, name)
}

func recordHolder(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}

	_, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)

	return err
}
