// Package methods implements the gateway's RPC surface, one struct per
// domain. Each struct registers its handlers onto the method router;
// handlers validate params, call the store, and answer exactly once.
package methods

import (
	"errors"

	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// storeError maps store sentinels onto wire error codes. Unknown ids are
// caller mistakes, so they answer INVALID_REQUEST with the store's
// "... not found" message rather than a server-fault code.
func storeError(reqID string, err error) *protocol.ResponseFrame {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return protocol.NewErrorResponse(reqID, protocol.ErrInvalidRequest, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return protocol.NewErrorResponse(reqID, protocol.ErrAlreadyExists, err.Error())
	default:
		return protocol.NewErrorResponse(reqID, protocol.ErrUnavailable, err.Error())
	}
}
