package service

import (
	"errors"
	"testing"

	"github.com/nftlevel-next/internal/repository"
)

func TestUplineOrderedBySponsorDistance(t *testing.T) {
	env := setupEngineTest(t)
	chain := createTestChain(t, env.db, "NLW", 4, true)

	result, err := env.upline.Upline(chain[3].ID, 10)
	if err != nil {
		t.Fatalf("upline failed: %v", err)
	}
	if result.Levels() != 3 || result.Truncated {
		t.Fatalf("unexpected result: %+v", result)
	}
	for i, entry := range result.Entries {
		if entry.Level != i+1 || entry.Member.ID != chain[2-i].ID {
			t.Fatalf("entry %d mismatch: level=%d member=%d", i, entry.Level, entry.Member.ID)
		}
	}

	limited, err := env.upline.Upline(chain[3].ID, 2)
	if err != nil {
		t.Fatalf("upline failed: %v", err)
	}
	if limited.Levels() != 2 || limited.Truncated {
		t.Fatalf("maxLevels should cap the walk: %+v", limited)
	}

	none, err := env.upline.Upline(chain[3].ID, 0)
	if err != nil {
		t.Fatalf("upline failed: %v", err)
	}
	if none.Levels() != 0 {
		t.Fatalf("zero levels should return empty upline")
	}
}

func TestUplineDetectsCycle(t *testing.T) {
	env := setupEngineTest(t)
	chain := createTestChain(t, env.db, "NLCY", 3, true)
	if err := env.db.Model(chain[0]).Update("sponsor_id", chain[2].ID).Error; err != nil {
		t.Fatalf("create cycle failed: %v", err)
	}

	result, err := env.upline.Upline(chain[2].ID, 10)
	if err != nil {
		t.Fatalf("upline failed: %v", err)
	}
	if !result.Truncated || result.CycleAt != chain[2].ID {
		t.Fatalf("cycle should truncate the walk: %+v", result)
	}
	if result.Levels() != 2 {
		t.Fatalf("each member must appear once, got %d levels", result.Levels())
	}
}

func TestUplineStopsAtMissingSponsor(t *testing.T) {
	env := setupEngineTest(t)
	chain := createTestChain(t, env.db, "NLMS", 2, true)
	if err := env.db.Model(chain[0]).Update("sponsor_id", 4242).Error; err != nil {
		t.Fatalf("break chain failed: %v", err)
	}

	result, err := env.upline.Upline(chain[1].ID, 10)
	if err != nil {
		t.Fatalf("upline failed: %v", err)
	}
	if !result.Truncated || result.BrokenAt != 4242 || result.Levels() != 1 {
		t.Fatalf("missing sponsor should truncate after level 1: %+v", result)
	}
}

func TestUplineKeepsPrefixOnStorageError(t *testing.T) {
	var failID uint
	env := setupEngineTestWithRepo(t, func(repo repository.MemberRepository) repository.MemberRepository {
		return &flakyMemberRepo{MemberRepository: repo, failID: &failID}
	})
	chain := createTestChain(t, env.db, "NLSE", 4, true)
	failID = chain[1].ID

	result, err := env.upline.Upline(chain[3].ID, 10)
	if err != nil {
		t.Fatalf("upline failed: %v", err)
	}
	if result.Err == nil || !result.Truncated || result.Levels() != 1 {
		t.Fatalf("storage error should keep resolved prefix: %+v", result)
	}

	if _, err := env.upline.Upline(9999, 10); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}
