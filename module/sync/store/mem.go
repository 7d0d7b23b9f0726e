package store

import (
	"context"
	"sort"
	"sync"

	"SyncIM/module/sync/model"
)

// MemStore is an in-memory gateway used by tests and local runs without a
// Mongo deployment. Groups keep their messages ordered by sequence number.
type MemStore struct {
	mu       sync.RWMutex
	members  map[string][]string              // user -> group ids, insertion order
	msgs     map[string][]*model.GroupMessage // group -> messages, ascending seq
	pointers map[string]map[string]int64      // group -> (user|device -> pointer)
}

func NewMemStore() *MemStore {
	return &MemStore{
		members:  make(map[string][]string),
		msgs:     make(map[string][]*model.GroupMessage),
		pointers: make(map[string]map[string]int64),
	}
}

func keyDevice(userID, deviceID string) string { return userID + "|" + deviceID }

func (m *MemStore) AddMember(groupID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.members[userID] {
		if g == groupID {
			return
		}
	}
	m.members[userID] = append(m.members[userID], groupID)
}

// AppendMessage assigns the next sequence number in the group and stores a
// copy of the record. Returns the assigned sequence number.
func (m *MemStore) AppendMessage(msg *model.GroupMessage) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	cp.ID = int64(len(m.msgs[cp.SiteGroupID])) + 1
	m.msgs[cp.SiteGroupID] = append(m.msgs[cp.SiteGroupID], &cp)
	return cp.ID
}

func (m *MemStore) SetPointer(groupID, userID, deviceID string, pointer int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pointers[groupID]
	if !ok {
		p = make(map[string]int64)
		m.pointers[groupID] = p
	}
	p[keyDevice(userID, deviceID)] = pointer
}

func (m *MemStore) ListGroups(ctx context.Context, siteUserID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.members[siteUserID]...), nil
}

func (m *MemStore) GetPointer(ctx context.Context, siteGroupID, siteUserID, deviceID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pointers[siteGroupID][keyDevice(siteUserID, deviceID)], nil
}

func (m *MemStore) FetchPage(ctx context.Context, siteGroupID, siteUserID, deviceID string, afterSeq int64, limit int) ([]*model.GroupMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.msgs[siteGroupID]
	// first index with seq > afterSeq
	i := sort.Search(len(all), func(i int) bool { return all[i].ID > afterSeq })
	end := i + limit
	if end > len(all) {
		end = len(all)
	}
	return append([]*model.GroupMessage(nil), all[i:end]...), nil
}
