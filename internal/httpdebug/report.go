package httpdebug

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	sprig "github.com/Masterminds/sprig/v3"
)

// CoordinatorDebug is the minimal surface httpdebug needs from a running
// coordinator.Coordinator[K, V] to render its report. It is expressed
// without the coordinator's type parameters so this package, and the debug
// binary wiring it, need not be generic themselves — mirroring how the
// teacher's server package depends on a narrow PipelineHTTP interface
// rather than the concrete runtime pipeline type.
type CoordinatorDebug interface {
	// Debug returns the spec.md §6 "requests: N pending: M" string.
	Debug() string
	PendingRequests() int
}

// reportData is the value handed to the report template.
type reportData struct {
	GeneratedAt  time.Time
	DebugLine    string
	PendingCount int
}

const reportTemplateSource = `<!DOCTYPE html>
<html>
<head><title>bulkcoord debug report</title></head>
<body>
<h1>bulkcoord</h1>
<p>generated {{ .GeneratedAt.Format "2006-01-02T15:04:05Z07:00" }}</p>
<table>
<tr><th>debug line</th><td>{{ .DebugLine }}</td></tr>
<tr><th>pending {{ .PendingCount | plural "request" "requests" }}</th><td>{{ .PendingCount }}</td></tr>
</table>
</body>
</html>
`

// reportTemplate compiles once; the report itself carries no untrusted
// input (it is an operator diagnostics page over the coordinator's own
// counters), so unlike the teacher's internal/templates renderer this has
// no sandbox to resolve file paths through or environment allow-list to
// enforce.
var reportTemplate = template.Must(template.New("report").Funcs(reportFuncs()).Parse(reportTemplateSource))

func reportFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["plural"] = func(singular, pluralForm string, n int) string {
		if n == 1 {
			return singular
		}
		return pluralForm
	}
	return funcs
}

func renderReport(now time.Time, debugLine string, pending int) (string, error) {
	var buf bytes.Buffer
	data := reportData{GeneratedAt: now, DebugLine: debugLine, PendingCount: pending}
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("httpdebug: render report: %w", err)
	}
	return buf.String(), nil
}
