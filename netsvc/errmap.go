package netsvc

import "github.com/AgentD/ctools/cmn"

func mapOSError(err error) cmn.ErrorCode {
	return cmn.MapOSError(err)
}
