// Package statsview is an optional package that is only fully built when
// the statsview build constraint is present.
//
//	It provides a HTTP server running locally offering runtime statistics.
//	Underlying functionality provided by "github.com/go-echarts/statsview"
//
//	After launch, graphical statistics will be viewable at:
//
//		localhost:12800/debug/statsview
//
//	And standard Go pprof statistics available at:
//
//		localhost:12800/debug/pprof/
//
// Without the build constraint, Available returns false and Launch does
// nothing, so callers can offer the feature unconditionally.
package statsview
