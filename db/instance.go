package db

import "github.com/google/uuid"

// newInstanceIID mints a random 32-bit writer instance id from the first
// four bytes of a fresh UUID, so EIDs minted by this process are unlikely
// to collide with another process's EIDs sharing the same storage. Two
// processes can still draw the same id; nothing coordinates instance ids
// across processes.
func newInstanceIID() uint32 {
	id := uuid.New()
	b := id[:]
	iid := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if iid == 0 {
		// Never collide with the reserved schema/system instance id.
		iid = 1
	}
	return iid
}
