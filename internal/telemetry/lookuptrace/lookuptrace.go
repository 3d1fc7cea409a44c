// Package lookuptrace creates spans around the local leg of a lookup
// resolution. The teacher's version tags spans via gRPC request metadata so
// a span tree spans every hop of a distributed lookup; without a metadata
// channel on the wire (see the telemetry package doc comment) each node can
// only span its own local resolution work, so that is what this package
// does.
package lookuptrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chordring/lookuptrace"

var tracer = otel.Tracer(tracerName)

// StartFindSuccessor starts a span covering one node's local resolution
// step for the given target identifier: either answering directly from its
// own successor, or picking the next hop to forward to.
func StartFindSuccessor(ctx context.Context, selfID, targetID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "FindSuccessor",
		trace.WithAttributes(
			attribute.String("dht.self.id", selfID),
			attribute.String("dht.target.id", targetID),
		),
	)
}
