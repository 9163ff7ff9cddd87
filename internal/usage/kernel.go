package usage

// UsageScale is the value of ThreadBasicInfo.CPUUsage for a thread that kept
// one core busy for the whole sampling window.
const UsageScale = 1000

// FlagIdle marks a thread that did no work in the sampling window.
const FlagIdle = 0x2

// Thread identifies one thread of the sampled task.
type Thread int32

// ThreadList is a snapshot of the task's threads. A list obtained from
// Kernel.TaskThreads must be handed back through Kernel.Deallocate.
type ThreadList []Thread

// ThreadBasicInfo is a per-thread usage block.
type ThreadBasicInfo struct {
	CPUUsage int32
	Flags    int32
}

func (i ThreadBasicInfo) Idle() bool {
	return i.Flags&FlagIdle != 0
}

// Kernel is the OS surface the sampler needs.
type Kernel interface {
	TaskThreads() (ThreadList, error)
	ThreadInfo(t Thread) (ThreadBasicInfo, error)
	Deallocate(list ThreadList)
}
