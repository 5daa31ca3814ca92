package invest

import (
	"errors"

	"github.com/STTM-NSU/invest-ledger/internal/broker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// classify maps a gRPC failure to a broker error kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		switch grpcErr.GRPCStatus().Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return &broker.AuthenticationError{Err: err}
		case codes.NotFound:
			if op == "instrument" {
				return errors.Join(broker.ErrInstrumentNotFound, err)
			}
		}
	}

	return &broker.TransportError{Op: op, Err: err}
}
