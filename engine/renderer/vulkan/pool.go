package vulkan

import "sync"

type LockGroup string

const (
	BufferManagement     LockGroup = "buffer_management"
	DescriptorManagement LockGroup = "descriptor_management"
	QueueManagement      LockGroup = "queue_management"
)

type lockKey struct {
	group LockGroup
	queue uint32
}

// VulkanLockPool hands out one mutex per lock group and one per registered
// queue family. Vulkan requires external synchronization for both.
type VulkanLockPool struct {
	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{locks: make(map[lockKey]*sync.Mutex)}
}

func (p *VulkanLockPool) mutex(key lockKey, create bool) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[key]
	if !ok && create {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	return m
}

func with(m *sync.Mutex, fn func() error) error {
	if m == nil {
		return fn()
	}
	m.Lock()
	defer m.Unlock()
	return fn()
}

// SafeCall runs fn holding the mutex of group.
func (p *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	return with(p.mutex(lockKey{group: group}, true), fn)
}

func (p *VulkanLockPool) SetQueueFamily(index uint32) {
	p.mutex(lockKey{group: QueueManagement, queue: index}, true)
}

// SafeQueueCall runs fn holding the mutex of a queue family registered with
// SetQueueFamily. Unregistered families run fn unguarded.
func (p *VulkanLockPool) SafeQueueCall(queueFamilyIndex uint32, fn func() error) error {
	return with(p.mutex(lockKey{group: QueueManagement, queue: queueFamilyIndex}, false), fn)
}
