package otel

import (
	"go.opentelemetry.io/otel"
)

const AppName = "storefront"

var Tracer = otel.Tracer(AppName)
