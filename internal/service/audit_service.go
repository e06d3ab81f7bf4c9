package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"go.uber.org/zap"
)

const (
	auditQueueSize    = 10_000
	auditWriteTimeout = 5 * time.Second
	auditDrainTimeout = 10 * time.Second
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// AuditEntry describes one mutation performed on behalf of a session.
type AuditEntry struct {
	Session      domain.Session
	Action       domain.AuditAction
	ResourceType string
	ResourceID   int64
	Changes      string
}

func (e AuditEntry) toLog() *domain.AuditLog {
	l := &domain.AuditLog{
		UserID:       e.Session.UserID,
		UserRole:     e.Session.Role,
		IPAddress:    e.Session.IP,
		RequestID:    e.Session.RequestID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		Changes:      e.Changes,
	}
	if e.ResourceID != 0 {
		l.ResourceID = strconv.FormatInt(e.ResourceID, 10)
	}
	return l
}

// AuditService persists the audit trail off the request path. A single
// writer drains a bounded queue; entries that do not fit are counted and
// dropped so a slow database never stalls clinical operations.
type AuditService struct {
	repo    AuditRepository
	metrics *metrics.Collector
	log     *zap.Logger

	mu      sync.RWMutex
	stopped bool
	entries chan *domain.AuditLog
	done    chan struct{}
	once    sync.Once
}

func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	return newAuditService(repo, m, log, auditQueueSize)
}

func newAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger, size int) *AuditService {
	s := &AuditService{
		repo:    repo,
		metrics: m,
		log:     log.Named("audit"),
		entries: make(chan *domain.AuditLog, size),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// LogAsync queues e without blocking. Entries arriving after Shutdown are
// discarded.
func (s *AuditService) LogAsync(e AuditEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}

	select {
	case s.entries <- e.toLog():
	default:
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit queue full, entry dropped",
			zap.String("action", string(e.Action)),
			zap.String("resource_type", e.ResourceType),
			zap.Int64("resource_id", e.ResourceID),
		)
	}
}

// Shutdown stops accepting entries and waits for the queue to drain. It is
// safe to call more than once.
func (s *AuditService) Shutdown() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.entries)
		s.mu.Unlock()
	})

	select {
	case <-s.done:
	case <-time.After(auditDrainTimeout):
		s.log.Warn("audit drain timed out", zap.Int("pending", len(s.entries)))
	}
}

func (s *AuditService) run() {
	defer close(s.done)
	for l := range s.entries {
		s.write(l)
	}
}

func (s *AuditService) write(l *domain.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, l); err != nil {
		s.log.Error("audit entry not persisted",
			zap.String("action", string(l.Action)),
			zap.String("request_id", l.RequestID),
			zap.Error(err),
		)
		return
	}
	s.metrics.AuditEntriesTotal.Inc()
}
