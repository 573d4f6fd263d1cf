package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"marketmind/pkg/domain"
)

func newTestJobLog(t *testing.T, cfg RedisJobLogConfig) (*RedisJobLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg.Addr = mr.Addr()
	log, err := NewRedisJobLog(cfg)
	if err != nil {
		t.Fatalf("new job log: %v", err)
	}
	return log, mr
}

func TestRecordAndRecent(t *testing.T) {
	log, _ := newTestJobLog(t, RedisJobLogConfig{})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		job := domain.GenerationJob{
			ID:             fmt.Sprintf("job-%d", i),
			ConversationID: "conv-1",
			Status:         "submitted",
			SubmittedAt:    time.Now().UTC(),
		}
		if err := log.Record(ctx, job); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	jobs, err := log.Recent(ctx, "conv-1", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(jobs))
	}
	if jobs[0].ID != "job-3" || jobs[2].ID != "job-1" {
		t.Fatalf("jobs must be newest first, got %+v", jobs)
	}
	other, err := log.Recent(ctx, "conv-2", 0)
	if err != nil {
		t.Fatalf("recent other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("job log must be per conversation, got %+v", other)
	}
}

func TestRecordTrimsToMax(t *testing.T) {
	log, _ := newTestJobLog(t, RedisJobLogConfig{MaxPerKey: 2})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		job := domain.GenerationJob{ID: fmt.Sprintf("job-%d", i), ConversationID: "conv-1", Status: "submitted"}
		if err := log.Record(ctx, job); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	jobs, err := log.Recent(ctx, "conv-1", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "job-5" || jobs[1].ID != "job-4" {
		t.Fatalf("jobs = %+v, want the two newest", jobs)
	}
}

func TestRecordSetsTTL(t *testing.T) {
	log, mr := newTestJobLog(t, RedisJobLogConfig{TTL: time.Hour})
	ctx := context.Background()

	if err := log.Record(ctx, domain.GenerationJob{ID: "job-1", ConversationID: "conv-1", Status: "submitted"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ttl := mr.TTL(defaultKeyPrefix + "conv-1"); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
}

func TestRecordRequiresConversationID(t *testing.T) {
	log, _ := newTestJobLog(t, RedisJobLogConfig{})
	if err := log.Record(context.Background(), domain.GenerationJob{ID: "job-1"}); err == nil {
		t.Fatalf("expected an error without a conversation id")
	}
}

func TestRecentSkipsCorruptEntries(t *testing.T) {
	log, mr := newTestJobLog(t, RedisJobLogConfig{})
	ctx := context.Background()

	if err := log.Record(ctx, domain.GenerationJob{ID: "job-1", ConversationID: "conv-1", Status: "submitted"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	mr.Lpush(defaultKeyPrefix+"conv-1", "{not json")
	jobs, err := log.Recent(ctx, "conv-1", 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-1" {
		t.Fatalf("jobs = %+v, want the valid entry only", jobs)
	}
}

func TestNewRedisJobLogRequiresAddr(t *testing.T) {
	if _, err := NewRedisJobLog(RedisJobLogConfig{}); err == nil {
		t.Fatalf("expected an error without an address")
	}
}
