package memory

import (
	"context"
	"sort"
	"sync"

	"livequiz-service/internal/domain"
)

// Archive is an in-memory implementation of the game history store, used when
// no database is configured. Records do not survive a restart.
type Archive struct {
	mu      sync.RWMutex
	records map[string]domain.GameRecord
}

func NewArchive() *Archive {
	return &Archive{records: make(map[string]domain.GameRecord)}
}

func (a *Archive) SaveRecord(_ context.Context, rec domain.GameRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records[rec.ID] = rec
	return nil
}

func (a *Archive) ListByHost(_ context.Context, hostName string, limit int) ([]domain.GameRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := make([]domain.GameRecord, 0)
	for _, rec := range a.records {
		if rec.HostName == hostName {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (a *Archive) DeleteRecord(_ context.Context, id, hostName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.records[id]
	if !ok {
		return domain.Errorf(domain.KindNotFound, "hosted game not found")
	}
	if rec.HostName != hostName {
		return domain.Errorf(domain.KindValidation, "you can only delete your own hosted games")
	}
	delete(a.records, id)
	return nil
}
