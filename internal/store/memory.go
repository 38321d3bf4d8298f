package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/AngelCh415/agentic-analyst/internal/metrics"
	"github.com/AngelCh415/agentic-analyst/internal/models"
)

// MemoryStore holds the record dataset, its aggregation and the current
// session. Writes tagged with a session id other than the current one are
// dropped, so a run that outlives a reset cannot touch the new session.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.PerformanceRecord
	agg     models.AggregatedContext
	sess    models.Session
	newID   func() string
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{newID: uuid.NewString}
	s.Reset(nil)
	return s
}

// Reset replaces the dataset, recomputes its aggregation and starts a fresh
// empty session.
func (s *MemoryStore) Reset(records []models.PerformanceRecord) string {
	agg := metrics.Aggregate(records)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]models.PerformanceRecord(nil), records...)
	s.agg = agg
	s.sess = emptySession(s.newID())
	return s.sess.ID
}

// BeginRun starts a fresh session for query with the processing flag set.
// It reports false, changing nothing, while another run is processing.
func (s *MemoryStore) BeginRun(query string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.IsProcessing {
		return "", false
	}
	s.sess = emptySession(s.newID())
	s.sess.Query = query
	s.sess.IsProcessing = true
	return s.sess.ID, true
}

func (s *MemoryStore) AppendLog(sessionID string, e models.AgentLogEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.ID != sessionID {
		return false
	}
	s.sess.Logs = append(s.sess.Logs, e)
	return true
}

// FinishRun clears the processing flag of the matching session. On success
// it stores the results; on failure it records runErr and keeps none.
func (s *MemoryStore) FinishRun(sessionID string, insights []models.InsightResult, recs []models.CreativeRecommendation, runErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess.ID != sessionID {
		return false
	}
	s.sess.IsProcessing = false
	if runErr != nil {
		s.sess.Error = runErr.Error()
		return true
	}
	if insights != nil {
		s.sess.Insights = insights
	}
	if recs != nil {
		s.sess.Recommendations = recs
	}
	return true
}

// Session returns a copy that is safe to read without the lock.
func (s *MemoryStore) Session() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.sess
	out.Logs = append([]models.AgentLogEntry{}, s.sess.Logs...)
	out.Insights = append([]models.InsightResult{}, s.sess.Insights...)
	out.Recommendations = append([]models.CreativeRecommendation{}, s.sess.Recommendations...)
	return out
}

func (s *MemoryStore) Context() models.AggregatedContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agg
}

func (s *MemoryStore) Records() []models.PerformanceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PerformanceRecord(nil), s.records...)
}

func emptySession(id string) models.Session {
	return models.Session{
		ID:              id,
		Logs:            []models.AgentLogEntry{},
		Insights:        []models.InsightResult{},
		Recommendations: []models.CreativeRecommendation{},
	}
}
