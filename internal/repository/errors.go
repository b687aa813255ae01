package repository

import "errors"

// ErrSlotTaken is returned by conditional availability updates when another
// writer already claimed or released the slot. Callers treat it as a lost
// race, not a storage failure.
var ErrSlotTaken = errors.New("slot availability changed by another writer")
