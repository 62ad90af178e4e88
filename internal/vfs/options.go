package vfs

// AccessMode is a permission checked by CheckAccess.
type AccessMode uint8

const (
	AccessRead AccessMode = iota + 1
	AccessWrite
	AccessExecute
)

func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// OpenOption describes how a stream or channel is opened.
type OpenOption uint16

const (
	OpenRead OpenOption = 1 << iota
	OpenWrite
	OpenAppend
	OpenCreate
	OpenCreateNew
	OpenTruncate
	OpenDeleteOnClose
	OpenSync
)

// writeIntent is the set of options that would modify the archive.
const writeIntent = OpenWrite | OpenAppend | OpenCreate | OpenCreateNew | OpenTruncate | OpenDeleteOnClose

func wantsWrite(opts []OpenOption) bool {
	for _, o := range opts {
		if o&writeIntent != 0 {
			return true
		}
	}
	return false
}

// CopyOption modifies Copy and Move.
type CopyOption uint8

const (
	ReplaceExisting CopyOption = iota + 1
	CopyAttributes
	AtomicMove
)

func hasCopyOption(opts []CopyOption, want CopyOption) bool {
	for _, o := range opts {
		if o == want {
			return true
		}
	}
	return false
}
