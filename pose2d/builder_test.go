package pose2d

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func vertexAt(x, y, yaw float64) Vertex {
	return VertexFromPose(r2.Point{X: x, Y: y}, yaw)
}

func TestPathBuilderEmpty(t *testing.T) {
	p := PathBuilder{}.Build(nil)
	test.That(t, p.Len(), test.ShouldEqual, 0)
}

func TestPathBuilderRejectsNegativeSpeed(t *testing.T) {
	v := vertexAt(1, 0, 0)
	v.Pose.DesiredSpeed = -1
	p := PathBuilder{}.Build([]Vertex{vertexAt(0, 0, 0), v})
	test.That(t, p.Len(), test.ShouldEqual, 0)
}

func TestPathBuilderAcceptsNegativeSpeedOnFirstVertex(t *testing.T) {
	// cbPath pushes the first pose verbatim before its validation loop
	// begins; a negative speed on the first vertex alone is accepted,
	// not rejected, matching that loop's bounds exactly.
	first := vertexAt(0, 0, 0)
	first.Pose.DesiredSpeed = -1
	p := PathBuilder{}.Build([]Vertex{first, vertexAt(1, 0, 0)})
	test.That(t, p.Len(), test.ShouldEqual, 2)
	test.That(t, p.At(0).DesiredSpeed, test.ShouldEqual, -1.0)
}

func TestPathBuilderRoundTripNoCoincidentVertices(t *testing.T) {
	in := []Vertex{vertexAt(0, 0, 0), vertexAt(1, 0, 0), vertexAt(1, 1, math.Pi/2)}
	p := PathBuilder{}.Build(in)
	test.That(t, p.Len(), test.ShouldEqual, len(in))
	for i, v := range in {
		test.That(t, p.At(i).Position.X, test.ShouldAlmostEqual, v.Pose.Position.X, 1e-9)
		test.That(t, p.At(i).Position.Y, test.ShouldAlmostEqual, v.Pose.Position.Y, 1e-9)
		test.That(t, p.At(i).Yaw, test.ShouldAlmostEqual, v.Pose.Yaw, 1e-9)
	}
}

func TestPathBuilderInPlaceRotationMarker(t *testing.T) {
	in := []Vertex{
		vertexAt(0, 0, 0),
		vertexAt(1, 0, 0),
		vertexAt(1, 0, math.Pi/2),
		vertexAt(1, 1, math.Pi/2),
	}
	p := PathBuilder{}.Build(in)
	test.That(t, p.Len(), test.ShouldEqual, 4)
	test.That(t, p.At(1).Position.X, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, p.At(1).Position.Y, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, p.At(2).Position.X, test.ShouldAlmostEqual, p.At(1).Position.X, 1e-9)
	test.That(t, p.At(2).Position.Y, test.ShouldAlmostEqual, p.At(1).Position.Y, 1e-9)
	test.That(t, p.At(2).Yaw, test.ShouldAlmostEqual, math.Pi/2, 1e-9)
	test.That(t, p.At(3).Position.Y, test.ShouldAlmostEqual, 1.0, 1e-9)
}

func TestPathBuilderIdempotentOnNormalizedPath(t *testing.T) {
	in := []Vertex{
		vertexAt(0, 0, 0),
		vertexAt(1, 0, 0),
		vertexAt(1, 0, math.Pi/2),
		vertexAt(1, 1, math.Pi/2),
	}
	first := PathBuilder{}.Build(in)
	var asVertices []Vertex
	for _, pose := range first.Vertices() {
		asVertices = append(asVertices, Vertex{Pose: pose})
	}
	rebuilt := PathBuilder{}.Build(asVertices)
	test.That(t, rebuilt.Len(), test.ShouldEqual, first.Len())
	for i := 0; i < first.Len(); i++ {
		test.That(t, rebuilt.At(i).Position.X, test.ShouldAlmostEqual, first.At(i).Position.X, 1e-9)
		test.That(t, rebuilt.At(i).Position.Y, test.ShouldAlmostEqual, first.At(i).Position.Y, 1e-9)
		test.That(t, rebuilt.At(i).Yaw, test.ShouldAlmostEqual, first.At(i).Yaw, 1e-9)
	}
}

func TestPathBuilderFlushesPendingMarkerAtEnd(t *testing.T) {
	in := []Vertex{vertexAt(0, 0, 0), vertexAt(0, 0, math.Pi)}
	p := PathBuilder{}.Build(in)
	test.That(t, p.Len(), test.ShouldEqual, 2)
	test.That(t, p.At(1).Yaw, test.ShouldAlmostEqual, math.Pi, 1e-9)
}
