package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルに一致するメトリクスを探すヘルパー。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSignup_IncrementsCounterPerActivity は活動ごとに登録カウンタが増加することを検証する。
func TestRecordSignup_IncrementsCounterPerActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignup("Chess Club")
	c.RecordSignup("Chess Club")
	c.RecordSignup("Gym Class")

	m := findMetric(t, reg, "mergington_signups_total", map[string]string{"activity": "Chess Club"})
	if m == nil {
		t.Fatal("mergington_signups_total{activity=Chess Club} not found")
	}
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("signups_total{Chess Club} = %v, want 2", v)
	}

	m = findMetric(t, reg, "mergington_signups_total", map[string]string{"activity": "Gym Class"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Error("signups_total{Gym Class} should be 1")
	}
}

// TestRecordUnregister_IncrementsCounter は登録解除カウンタが増加することを検証する。
func TestRecordUnregister_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUnregister("Chess Club")

	m := findMetric(t, reg, "mergington_unregistrations_total", map[string]string{"activity": "Chess Club"})
	if m == nil {
		t.Fatal("mergington_unregistrations_total not found")
	}
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("unregistrations_total = %v, want 1", v)
	}
}

// TestRecordFailure_LabelsOperationAndCode は失敗カウンタが操作とコードでラベル付けされることを検証する。
func TestRecordFailure_LabelsOperationAndCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFailure("unregister", "NOT_SIGNED_UP")
	c.RecordFailure("unregister", "NOT_SIGNED_UP")
	c.RecordFailure("signup", "ACTIVITY_NOT_FOUND")

	m := findMetric(t, reg, "mergington_registration_failures_total",
		map[string]string{"operation": "unregister", "code": "NOT_SIGNED_UP"})
	if m == nil {
		t.Fatal("failure metric not found")
	}
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("failures{unregister,NOT_SIGNED_UP} = %v, want 2", v)
	}
}

// TestRecordEventWriteFailure_IncrementsCounter は監査ログ書き込み失敗カウンタが増加することを検証する。
func TestRecordEventWriteFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEventWriteFailure()

	m := findMetric(t, reg, "mergington_event_write_failures_total", nil)
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Error("event_write_failures_total should be 1")
	}
}

// TestSetParticipants_SetsGauge は参加者数ゲージが上書きされることを検証する。
func TestSetParticipants_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetParticipants("Chess Club", 2)
	c.SetParticipants("Chess Club", 3)

	m := findMetric(t, reg, "mergington_participants", map[string]string{"activity": "Chess Club"})
	if m == nil {
		t.Fatal("mergington_participants not found")
	}
	if v := m.GetGauge().GetValue(); v != 3 {
		t.Errorf("participants{Chess Club} = %v, want 3", v)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	m := findMetric(t, reg, "mergington_http_status_total", map[string]string{"status_code": "200"})
	if m == nil || m.GetCounter().GetValue() != 2 {
		t.Error("http_status_total{200} should be 2")
	}
	m = findMetric(t, reg, "mergington_http_status_total", map[string]string{"status_code": "404"})
	if m == nil || m.GetCounter().GetValue() != 1 {
		t.Error("http_status_total{404} should be 1")
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)
	c.RecordRequestLatency(50 * time.Millisecond)

	m := findMetric(t, reg, "mergington_http_request_duration_seconds", nil)
	if m == nil {
		t.Fatal("request duration histogram not found")
	}
	if got := m.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorを満たすことを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
}

// TestMultipleCollectors_IndependentRegistries は別レジストリのCollectorが干渉しないことを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	NewCollector(reg2)

	c1.RecordSignup("Chess Club")

	if m := findMetric(t, reg2, "mergington_signups_total", map[string]string{"activity": "Chess Club"}); m != nil {
		t.Error("reg2 should not contain metrics recorded on c1")
	}
}
