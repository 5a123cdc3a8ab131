package structure

import (
	"testing"

	"go.uber.org/goleak"
)

// leakOptions ignores the opencensus stats worker that the Google API
// transport starts from an init function.
var leakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, leakOptions...)
}
