package archstore

import (
	"iter"

	"github.com/plus3/crowdsim/ecs"
)

// column is a type-erased block storage for one component kind.
type column interface {
	Append(item ecs.Component) int
	Set(index int, item ecs.Component) bool
	Delete(index int)
	Get(index int) (ecs.Component, bool)
	Has(index int) bool
	Compact() map[int]int
	Iter() iter.Seq[int]
}

// columnFactories maps every kind to a constructor for its typed storage.
var columnFactories = [ecs.KindCount]func() column{
	ecs.KindPosition:       newColumn[ecs.Position],
	ecs.KindVelocity:       newColumn[ecs.Velocity],
	ecs.KindMovingTarget:   newColumn[ecs.MovingTarget],
	ecs.KindSpeed:          newColumn[ecs.Speed],
	ecs.KindName:           newColumn[ecs.Name],
	ecs.KindVisionArea:     newColumn[ecs.VisionArea],
	ecs.KindFloorReference: newColumn[ecs.FloorReference],
	ecs.KindStatic:         newColumn[ecs.Static],
}

func newColumn[T ecs.Component]() column {
	return &blockStorage[T]{}
}

const blockSize = 64

// blockStorage stores values of T in fixed-size blocks. Deleted slots are
// recycled by Append, so every column of an archetype that sees the same
// sequence of Append and Delete calls hands out the same indices.
type blockStorage[T any] struct {
	blocks    [][blockSize]T
	filled    [][blockSize]bool
	freeSlots []int
	nextIndex int
}

func (bs *blockStorage[T]) Append(item ecs.Component) int {
	value, ok := item.(T)
	if !ok {
		return -1
	}
	return bs.push(value)
}

func (bs *blockStorage[T]) push(value T) int {
	if len(bs.freeSlots) > 0 {
		index := bs.freeSlots[len(bs.freeSlots)-1]
		bs.freeSlots = bs.freeSlots[:len(bs.freeSlots)-1]

		blockIdx, slotIdx := index/blockSize, index%blockSize
		bs.blocks[blockIdx][slotIdx] = value
		bs.filled[blockIdx][slotIdx] = true
		return index
	}

	index := bs.nextIndex
	bs.nextIndex++

	blockIdx, slotIdx := index/blockSize, index%blockSize
	if blockIdx >= len(bs.blocks) {
		bs.blocks = append(bs.blocks, [blockSize]T{})
		bs.filled = append(bs.filled, [blockSize]bool{})
	}

	bs.blocks[blockIdx][slotIdx] = value
	bs.filled[blockIdx][slotIdx] = true
	return index
}

func (bs *blockStorage[T]) Set(index int, item ecs.Component) bool {
	value, ok := item.(T)
	if !ok || !bs.Has(index) {
		return false
	}
	bs.blocks[index/blockSize][index%blockSize] = value
	return true
}

func (bs *blockStorage[T]) Get(index int) (ecs.Component, bool) {
	value, ok := bs.get(index)
	if !ok {
		return nil, false
	}
	c, ok := any(value).(ecs.Component)
	return c, ok
}

func (bs *blockStorage[T]) get(index int) (T, bool) {
	var zero T
	if !bs.Has(index) {
		return zero, false
	}
	return bs.blocks[index/blockSize][index%blockSize], true
}

func (bs *blockStorage[T]) Delete(index int) {
	if !bs.Has(index) {
		return
	}
	blockIdx, slotIdx := index/blockSize, index%blockSize
	bs.filled[blockIdx][slotIdx] = false
	var zero T
	bs.blocks[blockIdx][slotIdx] = zero
	bs.freeSlots = append(bs.freeSlots, index)
}

func (bs *blockStorage[T]) Has(index int) bool {
	if index < 0 {
		return false
	}
	blockIdx := index / blockSize
	if blockIdx >= len(bs.filled) {
		return false
	}
	return bs.filled[blockIdx][index%blockSize]
}

// Compact moves live values to the front and returns old index -> new index.
func (bs *blockStorage[T]) Compact() map[int]int {
	indexMap := make(map[int]int)

	total := bs.nextIndex - len(bs.freeSlots)
	if bs.nextIndex == 0 || total == 0 {
		bs.blocks = nil
		bs.filled = nil
		bs.freeSlots = nil
		bs.nextIndex = 0
		return indexMap
	}

	numBlocks := (total + blockSize - 1) / blockSize
	newBlocks := make([][blockSize]T, numBlocks)
	newFilled := make([][blockSize]bool, numBlocks)

	writePos := 0
	for readIdx := 0; readIdx < bs.nextIndex; readIdx++ {
		readBlock, readSlot := readIdx/blockSize, readIdx%blockSize
		if !bs.filled[readBlock][readSlot] {
			continue
		}
		indexMap[readIdx] = writePos

		writeBlock, writeSlot := writePos/blockSize, writePos%blockSize
		newBlocks[writeBlock][writeSlot] = bs.blocks[readBlock][readSlot]
		newFilled[writeBlock][writeSlot] = true
		writePos++
	}

	bs.blocks = newBlocks
	bs.filled = newFilled
	bs.freeSlots = nil
	bs.nextIndex = writePos
	return indexMap
}

func (bs *blockStorage[T]) Iter() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < bs.nextIndex; i++ {
			if bs.Has(i) && !yield(i) {
				return
			}
		}
	}
}
