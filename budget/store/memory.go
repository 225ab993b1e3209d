// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	budgets map[string]budget.Budget
}

var _ budget.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{budgets: make(map[string]budget.Budget)}
}

// SaveBudget stores a deep copy so later changes by the caller are not seen.
func (m *Memory) SaveBudget(_ context.Context, b budget.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[b.ID] = b.Clone()
	return nil
}

func (m *Memory) GetBudget(_ context.Context, id string) (*budget.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.budgets[id]
	if !ok {
		return nil, budget.ErrBudgetNotFound
	}
	out := b.Clone()
	return &out, nil
}

func (m *Memory) ListBudgets(_ context.Context) ([]budget.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]budget.Budget, 0, len(m.budgets))
	for _, b := range m.budgets {
		result = append(result, b.Clone())
	}
	return result, nil
}

func (m *Memory) DeleteBudget(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.budgets[id]; !ok {
		return budget.ErrBudgetNotFound
	}
	delete(m.budgets, id)
	return nil
}

// SaveCategory checks the stored version under the write lock, so two
// writers that loaded the same version cannot both succeed.
func (m *Memory) SaveCategory(_ context.Context, budgetID string, c budget.Category, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.budgets[budgetID]
	if !ok {
		return budget.ErrBudgetNotFound
	}

	current := 0
	if existing, ok := b.Category(c.ID); ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return budget.ErrConcurrentModification
	}

	m.budgets[budgetID] = b.WithCategory(c)
	return nil
}

func (m *Memory) DeleteCategory(_ context.Context, budgetID, categoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.budgets[budgetID]
	if !ok {
		return budget.ErrBudgetNotFound
	}
	for i, c := range b.Categories {
		if c.ID == categoryID {
			out := b.Clone()
			out.Categories = append(out.Categories[:i], out.Categories[i+1:]...)
			m.budgets[budgetID] = out
			return nil
		}
	}
	return budget.ErrCategoryNotFound
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = make(map[string]budget.Budget)
	return nil
}
