package ecs

import "fmt"

// Entity encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generations start at 1 so the zero value is never alive.
type Entity uint64

// Null is the entity that is never alive.
const Null Entity = 0

func newEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32      { return uint32(e) }
func (e Entity) Generation() uint32 { return uint32(e >> 32) }
func (e Entity) IsNull() bool       { return e == Null }

func (e Entity) String() string {
	return fmt.Sprintf("entity(%d:%d)", e.Index(), e.Generation())
}

// entityPool manages entity allocation with generational indices and a free list.
type entityPool struct {
	generations []uint32
	freeList    []uint32
}

func newEntityPool() *entityPool {
	return &entityPool{
		generations: make([]uint32, 0, 256),
		freeList:    make([]uint32, 0, 64),
	}
}

func (p *entityPool) create() Entity {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return newEntity(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return newEntity(idx, 1)
}

func (p *entityPool) alive(e Entity) bool {
	idx := e.Index()
	if e.IsNull() || int(idx) >= len(p.generations) {
		return false
	}
	return p.generations[idx] == e.Generation()
}

func (p *entityPool) release(e Entity) {
	if !p.alive(e) {
		return
	}
	idx := e.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.freeList = append(p.freeList, idx)
}

// each visits every live entity in index order.
func (p *entityPool) each(fn func(Entity)) {
	free := make(map[uint32]struct{}, len(p.freeList))
	for _, idx := range p.freeList {
		free[idx] = struct{}{}
	}
	for idx, gen := range p.generations {
		if _, ok := free[uint32(idx)]; ok {
			continue
		}
		fn(newEntity(uint32(idx), gen))
	}
}
