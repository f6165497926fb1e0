package cmn

import "fmt"

// Assert panics if cond is false. Reserved for invariant violations that
// indicate a programming error, never for ordinary or expected failure
// paths — those always return an ErrorCode.
func Assert(cond bool) {
	if !cond {
		panic("assertion failed")
	}
}

// AssertMsg is Assert with a caller-supplied diagnostic.
func AssertMsg(cond bool, msg string) {
	if !cond {
		panic("assertion failed: " + msg)
	}
}

// AssertNoErr panics if err is non-nil. Used at call sites where the error
// is believed unreachable (e.g. a Write into an in-memory buffer).
func AssertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v", err))
	}
}
