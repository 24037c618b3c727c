package pkg

const (
	HeaderTraceId string = "X-Trace-Id"
	TraceId       string = "trace_id"
)

// Service names, used as logger names.
const (
	ServiceDashboard string = "dashboard"
	ServiceCLI       string = "cli"
)
