package stream

import "github.com/AgentD/ctools/cmn"

// mapOSError delegates to the shared taxonomy table (§4.A); kept as a
// package-local alias since every file in this package calls it
// unqualified.
func mapOSError(err error) cmn.ErrorCode {
	return cmn.MapOSError(err)
}
