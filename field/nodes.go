package field

import (
	"math"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/pkg/errors"

	"go.viam.com/fieldnav/spatialmath"
)

// GridPosition names a row or a column of the 3x3 node grid.
type GridPosition uint8

// Grid positions, bottom to top of the field.
const (
	Bottom GridPosition = iota
	Middle
	Top
)

func (p GridPosition) String() string {
	switch p {
	case Bottom:
		return "bottom"
	case Middle:
		return "middle"
	case Top:
		return "top"
	default:
		return "invalid"
	}
}

// GridPositionFromString parses "bottom", "middle" or "top", case-insensitively.
func GridPositionFromString(s string) (GridPosition, error) {
	switch strings.ToLower(s) {
	case "bottom":
		return Bottom, nil
	case "middle":
		return Middle, nil
	case "top":
		return Top, nil
	}
	return Bottom, errors.Errorf("unknown grid position %q", s)
}

// Gamepiece is the kind of game piece the robot is scoring.
type Gamepiece uint8

// The game pieces.
const (
	Cone Gamepiece = iota
	Cube
)

func (g Gamepiece) String() string {
	switch g {
	case Cone:
		return "cone"
	case Cube:
		return "cube"
	default:
		return "invalid"
	}
}

// GamepieceForColumn returns the piece a node column accepts: the middle column of every grid
// takes cubes and the outer columns take cones.
func GamepieceForColumn(column GridPosition) Gamepiece {
	if column == Middle {
		return Cube
	}
	return Cone
}

const (
	// DistanceCube is how far in front of a cube node the robot stops, in meters.
	DistanceCube = 0.67
	// DistanceCone is how far in front of a cone node the robot stops, in meters.
	DistanceCone = 0.67
)

// Nodes holds every scoring node position, indexed by [grid row][node column], blue alliance.
var Nodes = [3][3]r2.Point{
	{{X: 1.38, Y: 0.51}, {X: 1.38, Y: 1.07}, {X: 1.38, Y: 1.63}},
	{{X: 1.38, Y: 2.19}, {X: 1.38, Y: 2.75}, {X: 1.38, Y: 3.31}},
	{{X: 1.38, Y: 3.87}, {X: 1.38, Y: 4.43}, {X: 1.38, Y: 4.99}},
}

// gridNormal points from the node grid out into the field.
var gridNormal = r2.Point{X: 1, Y: 0}

// NodeSelection is a validated choice of node and the piece being scored on it.
type NodeSelection struct {
	Row       GridPosition
	Column    GridPosition
	Gamepiece Gamepiece
}

// NewNodeSelection validates a selection. Indices outside the 3x3 grid are a programming error.
func NewNodeSelection(row, column GridPosition, gamepiece Gamepiece) (NodeSelection, error) {
	if row > Top {
		return NodeSelection{}, errors.Errorf("node row %d out of range [0, %d]", row, Top)
	}
	if column > Top {
		return NodeSelection{}, errors.Errorf("node column %d out of range [0, %d]", column, Top)
	}
	if gamepiece > Cube {
		return NodeSelection{}, errors.Errorf("unknown gamepiece %d", gamepiece)
	}
	return NodeSelection{Row: row, Column: column, Gamepiece: gamepiece}, nil
}

// Offset returns how far from the node the robot should stop for this selection's piece.
func (s NodeSelection) Offset() float64 {
	if s.Gamepiece == Cube {
		return DistanceCube
	}
	return DistanceCone
}

// Target returns the pose, blue alliance, the robot drives to in order to score: in front of the
// node by the piece offset, facing the grid.
func (s NodeSelection) Target() spatialmath.Pose {
	node := Nodes[s.Row][s.Column]
	pos := node.Add(gridNormal.Mul(s.Offset()))
	facing := s1.Angle(math.Atan2(gridNormal.Y, gridNormal.X)) + math.Pi
	return spatialmath.NewPoseFromPoint(pos, facing)
}

func (s NodeSelection) String() string {
	return s.Row.String() + "/" + s.Column.String() + "/" + s.Gamepiece.String()
}
