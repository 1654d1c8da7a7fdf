//go:build !windows

package launcher

import "os"

func interrupt(p *os.Process) error {
	return p.Signal(os.Interrupt)
}
