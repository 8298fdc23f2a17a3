package ultimateguitar

import (
	"ugtop-backend/lib/restyutil"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/ultimateguitar")
var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables verbose HTTP message dumps for clients
// created after the call.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
