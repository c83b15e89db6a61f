// Package refocus implements RefocusExtractProcessor, the reference Extract
// processor of spec.md §4.4: groups work by endpoint, fans out in parallel,
// consults the per-endpoint cache, calls the authenticated remote client,
// and emits Transmutation rows.
package refocus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pyplyn/pyplyn/internal/appconnectors"
	"github.com/pyplyn/pyplyn/internal/cache"
	"github.com/pyplyn/pyplyn/internal/clock"
	"github.com/pyplyn/pyplyn/internal/model"
	"github.com/pyplyn/pyplyn/internal/remote"
	"github.com/pyplyn/pyplyn/internal/status"
)

const serviceClass = "refocus"

// MeterName is the metering name processors expose per spec.md §4.4.
const MeterName = "extract.refocus"

// Processor is the reference RefocusExtractProcessor.
type Processor struct {
	connectors *appconnectors.AppConnectors
	shutdown   *clock.ShutdownSignal
	clk        clock.Clock
	status     *status.Status
}

// New constructs a Processor.
func New(connectors *appconnectors.AppConnectors, shutdown *clock.ShutdownSignal, clk clock.Clock, st *status.Status) *Processor {
	if clk == nil {
		clk = clock.System{}
	}
	return &Processor{connectors: connectors, shutdown: shutdown, clk: clk, status: st}
}

// MeterName satisfies the processor metering contract of spec.md §4.4.
func (p *Processor) MeterName() string { return MeterName }

// Run executes extracts, grouped by endpoint, in parallel across endpoints
// (unordered between endpoints, ordered within an endpoint's result rows to
// match the input order of that endpoint's Extracts), per spec.md §4.4.
func (p *Processor) Run(ctx context.Context, extracts []*model.RefocusExtract) model.Matrix {
	groups := groupByEndpoint(extracts)

	var (
		mu      sync.Mutex
		matrix  model.Matrix
		wg      sync.WaitGroup
	)

	for endpointID, group := range groups {
		wg.Add(1)
		go func(endpointID string, group []*model.RefocusExtract) {
			defer wg.Done()
			rows := p.runEndpoint(ctx, endpointID, group)
			mu.Lock()
			matrix = append(matrix, rows...)
			mu.Unlock()
		}(endpointID, group)
	}
	wg.Wait()

	return matrix
}

func groupByEndpoint(extracts []*model.RefocusExtract) map[string][]*model.RefocusExtract {
	groups := make(map[string][]*model.RefocusExtract)
	for _, e := range extracts {
		groups[e.EndpointID] = append(groups[e.EndpointID], e)
	}
	return groups
}

// runEndpoint processes one endpoint's group of extracts, preserving their
// declared input order in the returned rows.
func (p *Processor) runEndpoint(ctx context.Context, endpointID string, group []*model.RefocusExtract) model.Matrix {
	client, sampleCache, err := appconnectors.ClientAndCacheFor[Sample](p.connectors, endpointID, serviceClass)
	if err != nil {
		p.status.LogError("refocus_appconnectors_failed", err)
		p.status.Meter(MeterName, status.Failure)
		return nil
	}

	if err := client.Authenticate(ctx); err != nil {
		p.status.LogError("refocus_auth_failed", err)
		p.status.Meter(MeterName, status.AuthenticationFailure)
		p.status.Meter(MeterName, status.Failure)
		return nil
	}

	var matrix model.Matrix
	for _, e := range group {
		row := p.runOne(ctx, client, sampleCache, e)
		if row != nil {
			matrix = append(matrix, row)
		}
	}
	return matrix
}

func (p *Processor) runOne(ctx context.Context, client *remote.Client, sampleCache *cache.Cache[Sample], e *model.RefocusExtract) model.Row {
	key := e.CacheKey()

	sample, hit := sampleCache.Get(key)

	if !hit {
		if p.shutdown != nil && p.shutdown.Draining() {
			return nil
		}

		stop := p.status.Timer(MeterName, "remote_call")
		samples, err := p.fetch(ctx, client, e.Name)
		stop()
		if err != nil {
			p.status.LogError("refocus_remote_call_failed", err)
			p.status.Meter(MeterName, status.Failure)
			return nil
		}
		if len(samples) == 0 {
			p.status.Meter(MeterName, status.Failure)
			return nil
		}

		if e.CacheMillis > 0 {
			for _, s := range samples {
				if !s.TimedOut() {
					sampleCache.Put(s, time.Duration(e.CacheMillis)*time.Millisecond)
				}
			}
		}

		sample, hit = selectMatching(samples, e.FilteredName)
	}

	wasDefault := false
	if !hit || sample.TimedOut() {
		if e.DefaultValue != nil {
			sample = Sample{
				Name:      e.FilteredName,
				Value:     strconv.FormatFloat(*e.DefaultValue, 'f', -1, 64),
				UpdatedAt: p.clk.Now().UTC().Format(time.RFC3339),
			}
			wasDefault = true
		} else {
			p.status.Meter(MeterName, status.NoData)
			return nil
		}
	}

	point, ok := p.createResult(sample)
	if !ok {
		return nil
	}

	if wasDefault {
		point = point.WithMetadata(fmt.Sprintf("default value used for %s", e.FilteredName))
	}

	p.status.Meter(MeterName, status.Success)
	return model.Row{point}
}

// fetch calls the Refocus remote protocol: GET samples?name=<pattern>.
func (p *Processor) fetch(ctx context.Context, client *remote.Client, namePattern string) ([]Sample, error) {
	resp, err := client.ExecuteWithAuthRetry(ctx, func() (*http.Request, error) {
		u := strings.TrimSuffix(client.Endpoint(), "/") + "/samples?name=" + url.QueryEscape(namePattern)
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("remote: unexpected status %d", resp.StatusCode)
	}

	var samples []Sample
	if err := json.NewDecoder(resp.Body).Decode(&samples); err != nil {
		return nil, fmt.Errorf("remote: decode samples: %w", err)
	}
	return samples, nil
}

func selectMatching(samples []Sample, filteredName string) (Sample, bool) {
	for _, s := range samples {
		if s.Name == filteredName {
			return s, true
		}
	}
	return Sample{}, false
}

// createResult converts a Sample into a Transmutation: parse updatedAt as a
// UTC instant, parse value as a number. On time-parse failure: NoData,
// drop. On value-parse failure: distinguish timed-out (NoData, drop) from
// other parse failures (NoData, drop, different log), per spec.md §4.4.
func (p *Processor) createResult(s Sample) (model.Transmutation, bool) {
	ts, err := time.Parse(time.RFC3339, s.UpdatedAt)
	if err != nil {
		p.status.LogError("refocus_time_parse_failed", err)
		p.status.Meter(MeterName, status.NoData)
		return model.Transmutation{}, false
	}

	if s.TimedOut() {
		p.status.Meter(MeterName, status.NoData)
		return model.Transmutation{}, false
	}

	value, err := strconv.ParseFloat(s.Value, 64)
	if err != nil {
		p.status.LogError("refocus_value_parse_failed", err)
		p.status.Meter(MeterName, status.NoData)
		return model.Transmutation{}, false
	}

	return model.Transmutation{
		Time:          ts.UTC(),
		Name:          s.Name,
		Value:         value,
		OriginalValue: value,
	}, true
}
