package kinematics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// ErrBadRotation is returned for rotations that are neither a 3x3 matrix
// nor a quaternion.
var ErrBadRotation = errors.New("rotation must have 9 (matrix) or 4 (quaternion) values")

// EgoPose is the ego vehicle position and heading at one frame.
type EgoPose struct {
	Position []float64 `json:"position"`
	Rotation []float64 `json:"rotation"`
	Yaw      float64   `json:"yaw"`
}

// NewEgoPose builds a pose from a frame's translation and rotation. The
// yaw is derived from the rotation and stored under mode.
func NewEgoPose(translation, rotation []float64, mode HeadingMode) (EgoPose, error) {
	yaw, err := EgoYaw(rotation)
	if err != nil {
		return EgoPose{}, err
	}
	return EgoPose{
		Position: clone(translation),
		Rotation: clone(rotation),
		Yaw:      mode.Apply(yaw),
	}, nil
}

// EgoYaw extracts the heading about the z axis from a row-major 3x3
// rotation matrix or a (w, x, y, z) quaternion.
func EgoYaw(rotation []float64) (float64, error) {
	switch len(rotation) {
	case 9:
		r := mat.NewDense(3, 3, clone(rotation))
		return math.Atan2(r.At(1, 0), r.At(0, 0)), nil
	case 4:
		q := quat.Number{Real: rotation[0], Imag: rotation[1], Jmag: rotation[2], Kmag: rotation[3]}
		n := quat.Abs(q)
		if n == 0 {
			return 0, fmt.Errorf("%w: zero quaternion", ErrBadRotation)
		}
		q = quat.Scale(1/n, q)
		return math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)), nil
	default:
		return 0, fmt.Errorf("%w: got %d", ErrBadRotation, len(rotation))
	}
}

func clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
