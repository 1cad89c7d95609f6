package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/gradecraft/internal/platform/envutil"
	"github.com/yungbote/gradecraft/internal/platform/logger"
)

type dqAlertState struct {
	mu   sync.Mutex
	last map[string]time.Time
}

var dqAlerts dqAlertState

// ReportUnresolvedIssues records validator issues that survived every attempt. Each issue
// is bucketed into a coarse category for metrics; the warning log is rate limited per kind.
func ReportUnresolvedIssues(ctx context.Context, log *logger.Logger, m *Metrics, kind string, issues []string, meta map[string]any) {
	if len(issues) == 0 {
		return
	}
	kind = orUnknown(kind)
	if meta == nil {
		meta = map[string]any{}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		meta["trace_id"] = sc.TraceID().String()
	}

	counts := map[string]int{}
	samples := make([]string, 0, 3)
	for _, issue := range issues {
		issue = strings.TrimSpace(issue)
		if issue == "" {
			continue
		}
		if len(samples) < 3 {
			samples = append(samples, issue)
		}
		cat := IssueCategory(issue)
		counts[cat]++
		m.incQualityIssue(kind, cat)
	}
	if log == nil || len(counts) == 0 || !dqAlerts.allow(kind, qualityLogInterval()) {
		return
	}
	log.Warn("content quality issues unresolved",
		"kind", kind,
		"issues", counts,
		"sample_issues", samples,
		"meta", meta,
	)
}

// IssueCategory maps a validator issue string to a metrics label.
func IssueCategory(issue string) string {
	lower := strings.ToLower(issue)
	switch {
	case strings.Contains(lower, "exactly 4 options"), strings.Contains(lower, "correctindex"), strings.Contains(lower, "no questions"):
		return "structure"
	case strings.Contains(lower, "readability"):
		return "readability"
	case strings.Contains(lower, "banned"):
		return "banned_word"
	case strings.Contains(lower, "simple enough"):
		return "not_simple"
	case strings.Contains(lower, "sentence"):
		return "sentence_length"
	case strings.Contains(lower, "words"):
		return "length"
	case strings.Contains(lower, "parse"), strings.Contains(lower, "json"):
		return "parse"
	default:
		return "other"
	}
}

func (s *dqAlertState) allow(key string, minInterval time.Duration) bool {
	if minInterval <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = map[string]time.Time{}
	}
	now := time.Now()
	if last, ok := s.last[key]; ok && now.Sub(last) < minInterval {
		return false
	}
	s.last[key] = now
	return true
}

func qualityLogInterval() time.Duration {
	return envutil.Seconds("QUALITY_ALERT_MIN_INTERVAL_SECONDS", 0)
}
