package system

import stdErrors "errors"

// ErrUnsupported is returned by FreeSpace on platforms without statfs.
var ErrUnsupported = stdErrors.New("free space probe not supported on this platform")

// LowSpaceThreshold is the free space under which a run logs a warning.
const LowSpaceThreshold uint64 = 1 << 30
