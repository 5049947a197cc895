package view

import (
	"fmt"

	"sigaddr/process"
)

// Read copies a T out of img at addr.
func Read[T any](img process.Image, addr process.ProcessMemoryAddress) (T, error) {
	return process.Read[T](img, addr)
}

// ReadField copies the F located offset bytes past addr out of img.
func ReadField[F any](img process.Image, addr process.ProcessMemoryAddress, offset int64) (F, error) {
	return process.Read[F](img, addr.Add(offset))
}

// RemoteVTable is VTable for a table inside another process. Slots are read
// at the image's pointer width.
type RemoteVTable struct {
	img   process.Image
	base  process.ProcessMemoryAddress
	slots int
}

func NewRemoteVTable(img process.Image, addr process.ProcessMemoryAddress, slots int) *RemoteVTable {
	return &RemoteVTable{img: img, base: addr, slots: max(slots, 0)}
}

func (v *RemoteVTable) Address() process.ProcessMemoryAddress { return v.base }

func (v *RemoteVTable) Len() int { return v.slots }

func (v *RemoteVTable) Slot(i int) (process.ProcessMemoryAddress, error) {
	if i < 0 || i >= v.slots {
		return 0, fmt.Errorf("vtable slot %d of %d: %w", i, v.slots, ErrIndexOutOfRange)
	}
	at := v.base.Add(int64(i) * int64(v.img.PointerSize()))
	return process.ReadPointer(v.img, at)
}

// Slots reads the whole table.
func (v *RemoteVTable) Slots() ([]process.ProcessMemoryAddress, error) {
	out := make([]process.ProcessMemoryAddress, v.slots)
	for i := range out {
		slot, err := v.Slot(i)
		if err != nil {
			return nil, err
		}
		out[i] = slot
	}
	return out, nil
}
