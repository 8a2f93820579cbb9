// Package sysinfo samples system and per-process resource usage through gopsutil.
package sysinfo

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// Snapshot is one system-wide resource sample. Percentages are 0-100, rates bytes/second.
type Snapshot struct {
	Timestamp     time.Time
	CPUUsage      float64
	MemoryUsage   float64
	DiskUsage     float64
	NetworkRxRate float64
	NetworkTxRate float64
	LoadAverage   float64
}

// processHandle is the part of *process.Process the collector reads.
type processHandle interface {
	Percent(interval time.Duration) (float64, error)
	MemoryPercent() (float32, error)
}

type sources struct {
	cpuPercent func() (float64, error)
	memory     func() (float64, error)
	disk       func(path string) (float64, error)
	netBytes   func() (rx, tx uint64, err error)
	load       func() (float64, error)
	process    func(pid int) (processHandle, error)
	exists     func(pid int) (bool, error)
}

type netCounters struct {
	rx, tx uint64
	at     time.Time
}

// Collector samples the running system. CPU is measured against the previous call, so
// a process's first reading is zero; network rates are zero on the first Collect.
type Collector struct {
	diskPath string
	src      sources
	numCPU   int
	now      func() time.Time

	mu      sync.Mutex
	lastNet *netCounters
	procs   map[int]processHandle
}

// NewCollector samples the host and reports disk usage for the filesystem holding diskPath.
func NewCollector(diskPath string) *Collector {
	return newCollector(diskPath, hostSources())
}

func newCollector(diskPath string, src sources) *Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Collector{
		diskPath: diskPath,
		src:      src,
		numCPU:   max(runtime.NumCPU(), 1),
		now:      time.Now,
		procs:    make(map[int]processHandle),
	}
}

func hostSources() sources {
	return sources{
		cpuPercent: func() (float64, error) {
			percents, err := cpu.Percent(0, false)
			if err != nil {
				return 0, err
			}
			if len(percents) == 0 {
				return 0, fmt.Errorf("no aggregate cpu figure")
			}
			return percents[0], nil
		},
		memory: func() (float64, error) {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return vm.UsedPercent, nil
		},
		disk: func(path string) (float64, error) {
			usage, err := disk.Usage(path)
			if err != nil {
				return 0, err
			}
			return usage.UsedPercent, nil
		},
		netBytes: func() (rx, tx uint64, err error) {
			counters, err := net.IOCounters(true)
			if err != nil {
				return 0, 0, err
			}
			for _, c := range counters {
				if c.Name == "lo" {
					continue
				}
				rx += c.BytesRecv
				tx += c.BytesSent
			}
			return rx, tx, nil
		},
		load: func() (float64, error) {
			avg, err := load.Avg()
			if err != nil {
				return 0, err
			}
			return avg.Load1, nil
		},
		process: func(pid int) (processHandle, error) {
			p, err := process.NewProcess(int32(pid))
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		exists: func(pid int) (bool, error) {
			return process.PidExists(int32(pid))
		},
	}
}

// Collect takes a system snapshot. Any unreadable source fails the whole sample.
func (c *Collector) Collect() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	snap := &Snapshot{Timestamp: now}

	var err error
	if snap.CPUUsage, err = c.src.cpuPercent(); err != nil {
		return nil, fmt.Errorf("failed to read cpu stats: %w", err)
	}
	snap.CPUUsage = clampPercent(snap.CPUUsage)

	if snap.MemoryUsage, err = c.src.memory(); err != nil {
		return nil, fmt.Errorf("failed to read memory stats: %w", err)
	}

	if snap.DiskUsage, err = c.src.disk(c.diskPath); err != nil {
		return nil, fmt.Errorf("failed to read disk stats: %w", err)
	}

	rx, tx, err := c.src.netBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read network stats: %w", err)
	}
	if c.lastNet != nil {
		if elapsed := now.Sub(c.lastNet.at).Seconds(); elapsed > 0 {
			if rx >= c.lastNet.rx {
				snap.NetworkRxRate = float64(rx-c.lastNet.rx) / elapsed
			}
			if tx >= c.lastNet.tx {
				snap.NetworkTxRate = float64(tx-c.lastNet.tx) / elapsed
			}
		}
	}
	c.lastNet = &netCounters{rx: rx, tx: tx, at: now}

	if snap.LoadAverage, err = c.src.load(); err != nil {
		return nil, fmt.Errorf("failed to read load average: %w", err)
	}

	return snap, nil
}

// ProcessUsage returns the share of total CPU and memory used by pid. CPU is measured
// since the previous call for the same pid and is zero on the first call.
func (c *Collector) ProcessUsage(pid int) (float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.procs[pid]
	if !ok {
		c.pruneLocked()
		var err error
		if p, err = c.src.process(pid); err != nil {
			return 0, 0, fmt.Errorf("failed to open process %d: %w", pid, err)
		}
		c.procs[pid] = p
	}

	percent, err := p.Percent(0)
	if err != nil {
		delete(c.procs, pid)
		return 0, 0, fmt.Errorf("failed to read cpu for process %d: %w", pid, err)
	}
	memPercent, err := p.MemoryPercent()
	if err != nil {
		delete(c.procs, pid)
		return 0, 0, fmt.Errorf("failed to read memory for process %d: %w", pid, err)
	}

	// Percent is relative to one core.
	return clampPercent(percent / float64(c.numCPU)), clampPercent(float64(memPercent)), nil
}

// pruneLocked forgets processes that have exited.
func (c *Collector) pruneLocked() {
	for pid := range c.procs {
		if alive, err := c.src.exists(pid); err == nil && !alive {
			delete(c.procs, pid)
		}
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
