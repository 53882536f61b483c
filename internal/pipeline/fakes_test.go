package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/observability"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
)

// --- mocks ---

type fakeStore struct {
	codes      []int64
	malformed  []string
	maxID      int64
	err        error
	rangeCalls int
}

func (f *fakeStore) ActiveCodesWithPrefix(_ context.Context, prefix string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, c := range f.codes {
		s := storedCode(c)
		if strings.HasPrefix(s, prefix) && len(s) == len(prefix)+domain.SequenceLen {
			out = append(out, s)
		}
	}
	return append(out, f.malformed...), nil
}

// storedCode renders a numeric code with its leading zero, picking the width
// from its magnitude.
func storedCode(c int64) string {
	switch {
	case c >= 100_000_000:
		return fmt.Sprintf("%0*d", domain.MaxCodeLen, c)
	case c >= 10_000_000:
		return fmt.Sprintf("%0*d", domain.MinCodeLen+1, c)
	}
	return fmt.Sprintf("%0*d", domain.MinCodeLen, c)
}

func (f *fakeStore) ActiveCodesInRange(_ context.Context, lo, hi int64) ([]int64, error) {
	f.rangeCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []int64
	for _, c := range f.codes {
		if c >= lo && c < hi {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) MaxRegistryID(_ context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.maxID, nil
}

type fakeTable struct {
	name    string
	columns []string
	rows    [][]any
	colErr  error
	rowErr  error
}

func (f *fakeTable) Name() string { return f.name }

func (f *fakeTable) Columns(context.Context) ([]string, error) {
	return f.columns, f.colErr
}

func (f *fakeTable) Rows(context.Context) ([][]any, error) {
	return f.rows, f.rowErr
}

type fakeBoundaries struct {
	subBasin     *domain.Area
	municipality *domain.Area
}

func (f fakeBoundaries) SubBasinAt(float64, float64) (domain.Area, bool) {
	if f.subBasin == nil {
		return domain.Area{}, false
	}
	return *f.subBasin, true
}

func (f fakeBoundaries) MunicipalityAt(float64, float64) (domain.Area, bool) {
	if f.municipality == nil {
		return domain.Area{}, false
	}
	return *f.municipality, true
}

type fakeSink struct {
	format  string
	err     error
	destErr error
	failOn  string
	written []domain.StationRecord
	block   chan struct{}
}

func (f *fakeSink) Format() string { return f.format }

func (f *fakeSink) CheckDestination(string) error { return f.destErr }

func (f *fakeSink) Write(_ context.Context, records []domain.StationRecord, _ string) (pipeline.ExportReport, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return pipeline.ExportReport{}, f.err
	}
	var report pipeline.ExportReport
	for _, r := range records {
		if r.Name == f.failOn {
			report.Fail(r.Name, domain.ErrExportRow, "INSERT INTO Estacoes_Codificadas")
			continue
		}
		f.written = append(f.written, r)
		report.Succeed()
	}
	return report, nil
}

type fakeSaver struct {
	saved []domain.StationRecord
	err   error
}

func (f *fakeSaver) SaveStations(_ context.Context, records []domain.StationRecord) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, records...)
	return len(records), nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []domain.StationRecord
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, records []domain.StationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, records...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func ptr[T any](v T) *T { return &v }
