package logging

import "context"

type fieldsKey struct{}

// WithFields returns a context carrying fields merged over the ones already
// attached. The parent context is not modified.
func WithFields(ctx context.Context, fields LogFields) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	existing, _ := ctx.Value(fieldsKey{}).(LogFields)
	merged := make(LogFields, len(existing)+len(fields))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsFromContext returns a copy of the fields attached with WithFields.
func FieldsFromContext(ctx context.Context) LogFields {
	if ctx == nil {
		return LogFields{}
	}
	existing, _ := ctx.Value(fieldsKey{}).(LogFields)
	out := make(LogFields, len(existing))
	for k, v := range existing {
		out[k] = v
	}
	return out
}

// FromContext enriches base with the fields carried by ctx.
func FromContext(ctx context.Context, base ServiceLogger) ServiceLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields)
}
