//go:build !linux

package stress

import "runtime"

// pinToCPU is a no-op where sched_setaffinity is unavailable
func pinToCPU(cpu int) error {
	return nil
}

func allowedCPUs() ([]int, error) {
	cpus := make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus, nil
}
