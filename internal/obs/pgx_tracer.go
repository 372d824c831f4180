package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// sqlStatementLimit caps the statement attribute so order inserts with many
// line parameters do not bloat span payloads.
const sqlStatementLimit = 240

type pgxSpanKey struct{}

// PGXTracer implements pgx.QueryTracer so every store query shows up as a
// child span under the active request.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	stmt := strings.TrimSpace(data.SQL)
	name := "sql.query"
	if fields := strings.Fields(stmt); len(fields) > 0 {
		name = "sql." + strings.ToLower(fields[0])
	}
	ctx, span := otel.Tracer("pos.store").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", clipSQL(stmt)),
		attribute.Int("db.args", len(data.Args)),
	)
	return context.WithValue(ctx, pgxSpanKey{}, span)
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(pgxSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.String("db.result", data.CommandTag.String()))
	}
	span.End()
}

func clipSQL(stmt string) string {
	if len(stmt) > sqlStatementLimit {
		return stmt[:sqlStatementLimit] + "..."
	}
	return stmt
}
