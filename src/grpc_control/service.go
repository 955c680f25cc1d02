package grpc_control

import (
	"context"
	"time"

	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Refresher is the part of the refresh engine the control plane drives.
type Refresher interface {
	RefreshAll(ctx context.Context)
	Status() []models.MRefreshStatus
}

type LoopState interface {
	IsRunning() bool
	Ticks() int64
}

type MarketClock interface {
	IsOpen(t time.Time) bool
}

// -----------------------------------------------------------------------------

// ControlService implements the DashboardControlServer interface
type ControlService struct {
	UnimplementedDashboardControlServer
	Refresher Refresher
	Loop      LoopState
	Market    MarketClock
	Logger    *logger.Logger
	now       func() time.Time
}

// NewControlService creates a new instance of ControlService. loop and market
// may be nil when the service runs without a polling loop.
func NewControlService(refresher Refresher, loop LoopState, market MarketClock, log *logger.Logger) *ControlService {
	return &ControlService{
		Refresher: refresher,
		Loop:      loop,
		Market:    market,
		Logger:    log,
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	return s.statusStruct()
}

// -----------------------------------------------------------------------------

// RefreshNow runs one full refresh outside the schedule and returns the
// counters afterwards. Refresh failures are reported in the counters, not as
// an RPC error.
func (s *ControlService) RefreshNow(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	s.Logger.Info("gRPC: RefreshNow requested")
	s.Refresher.RefreshAll(ctx)
	return s.statusStruct()
}

// -----------------------------------------------------------------------------

func (s *ControlService) statusStruct() (*structpb.Struct, error) {
	ops := make([]interface{}, 0, 3)
	for _, st := range s.Refresher.Status() {
		ops = append(ops, map[string]interface{}{
			"operation":    st.Operation,
			"runs":         st.Runs,
			"failures":     st.Failures,
			"last_error":   st.LastError,
			"last_success": st.LastSuccess,
		})
	}

	fields := map[string]interface{}{
		"running": false,
		"ticks":   int64(0),
		"refresh": ops,
	}
	if s.Loop != nil {
		fields["running"] = s.Loop.IsRunning()
		fields["ticks"] = s.Loop.Ticks()
	}
	if s.Market != nil {
		fields["market_open"] = s.Market.IsOpen(s.now())
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		s.Logger.Error("gRPC: failed to encode status: %v", err)
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}
	return out, nil
}
