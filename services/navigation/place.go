package navigation

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/fieldnav/components/arm"
	"go.viam.com/fieldnav/components/base"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/logging"
)

// PlaceGamepiece waits until the robot is inside its community and then raises the arm to the
// angle for the piece being scored. The arm moves in the background so Tick never blocks.
type PlaceGamepiece struct {
	arm       arm.Arm
	angles    arm.Angles
	localizer base.Localizer
	alliance  field.Alliance
	piece     func() field.Gamepiece
	logger    logging.Logger

	mu     sync.Mutex
	state  State
	moving bool
	done   chan error
	cancel context.CancelFunc
}

// NewPlaceGamepiece returns an idle placement behavior. piece is asked for the game piece when the
// arm starts moving, so it can follow a selection that changes.
func NewPlaceGamepiece(
	a arm.Arm,
	angles arm.Angles,
	localizer base.Localizer,
	alliance field.Alliance,
	piece func() field.Gamepiece,
	logger logging.Logger,
) (*PlaceGamepiece, error) {
	if a == nil || localizer == nil || piece == nil || logger == nil {
		return nil, errors.New("placing a game piece requires an arm, a localizer, a piece source and a logger")
	}
	return &PlaceGamepiece{
		arm:       a,
		angles:    angles,
		localizer: localizer,
		alliance:  alliance,
		piece:     piece,
		logger:    logger.WithFields("behavior", "place_gamepiece"),
	}, nil
}

// Name returns the behavior name.
func (p *PlaceGamepiece) Name() string {
	return "place_gamepiece"
}

// State returns the lifecycle state.
func (p *PlaceGamepiece) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsDone returns whether the arm reached its angle or the behavior was cancelled.
func (p *PlaceGamepiece) IsDone() bool {
	s := p.State()
	return s == StateCompleted || s == StateCancelled
}

// Start arms the behavior. Starting it while it is running does nothing.
func (p *PlaceGamepiece) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateRunning {
		return nil
	}
	p.state = StateRunning
	p.moving = false
	return nil
}

// Tick starts the arm once the robot is in the community and completes when the arm is there.
func (p *PlaceGamepiece) Tick(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRunning {
		return nil
	}

	if p.moving {
		select {
		case err := <-p.done:
			p.moving = false
			p.cancel()
			if err != nil {
				p.state = StateCancelled
				return errors.Wrap(err, "placing game piece")
			}
			p.state = StateCompleted
			p.logger.Info("game piece placed")
		default:
		}
		return nil
	}

	pose, err := p.localizer.CurrentPosition(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot locate robot")
	}
	if !field.InCommunity(pose.Point, p.alliance) {
		return nil
	}

	piece := p.piece()
	angle := p.angles.For(piece)
	p.logger.Infow("raising arm", "gamepiece", piece, "angle", angle)

	var moveCtx context.Context
	moveCtx, p.cancel = context.WithCancel(context.Background())
	done := make(chan error, 1)
	p.done = done
	p.moving = true
	utils.PanicCapturingGo(func() {
		done <- p.arm.GoToAngle(moveCtx, angle)
	})
	return nil
}

// Cancel stops the arm where it is.
func (p *PlaceGamepiece) Cancel(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateRunning {
		return nil
	}
	p.state = StateCancelled
	if !p.moving {
		return nil
	}
	p.moving = false
	p.cancel()
	return p.arm.Stop(ctx)
}
