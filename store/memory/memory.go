// Package memory provides an in-memory catalog and launch store.
//
// It implements the same collaborator interfaces as store/sqlite and is
// meant for tests, the CLI "calculate" command and local experiments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	tiers    map[string][]compensation.ActivityTier
	kpis     []compensation.KPIDefinition
	launches map[key][]compensation.Launch
}

type key struct {
	UserID generic.UserID
	Day    string
}

func New() *Memory {
	return &Memory{
		tiers:    make(map[string][]compensation.ActivityTier),
		launches: make(map[key][]compensation.Launch),
	}
}

// AddTiers appends tiers to the catalog, keyed by their activity name.
func (m *Memory) AddTiers(tiers ...compensation.ActivityTier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tiers {
		m.tiers[t.ActivityName] = append(m.tiers[t.ActivityName], t)
	}
}

// AddKPIs appends definitions to the KPI catalog.
func (m *Memory) AddKPIs(defs ...compensation.KPIDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kpis = append(m.kpis, defs...)
}

func (m *Memory) GetTiers(_ context.Context, activityName string) ([]compensation.ActivityTier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]compensation.ActivityTier, len(m.tiers[activityName]))
	copy(result, m.tiers[activityName])
	return result, nil
}

// ActivityNames lists the activities that have tiers, sorted.
func (m *Memory) ActivityNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.tiers))
	for name := range m.tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Memory) GetKPIs(_ context.Context, functionName string, shift compensation.Shift) ([]compensation.KPIDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []compensation.KPIDefinition
	for _, def := range m.kpis {
		if def.FunctionName != functionName {
			continue
		}
		if def.Shift == shift || def.Shift == compensation.ShiftGeneral {
			result = append(result, def)
		}
	}
	return result, nil
}

func (m *Memory) GetClaimCount(_ context.Context, userID generic.UserID, day generic.TimePoint) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, l := range m.launches[key{UserID: userID, Day: day.String()}] {
		if l.IsKPIBearing() {
			count++
		}
	}
	return count, nil
}

// RecordLaunch appends a launch. Append-only.
func (m *Memory) RecordLaunch(_ context.Context, launch compensation.Launch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{UserID: launch.UserID, Day: launch.Date.String()}
	m.launches[k] = append(m.launches[k], launch)
	return nil
}

// Launches returns the launches of a user within period, oldest day first.
func (m *Memory) Launches(_ context.Context, userID generic.UserID, period generic.Period) ([]compensation.Launch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []compensation.Launch
	for k, ls := range m.launches {
		if k.UserID != userID {
			continue
		}
		for _, l := range ls {
			if period.Contains(l.Date) {
				result = append(result, l)
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
