package mission

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/JasonCodez/kryptyk-labs/internal/asset"
	"github.com/JasonCodez/kryptyk-labs/internal/audit"
	"github.com/JasonCodez/kryptyk-labs/internal/clearance"
	"github.com/JasonCodez/kryptyk-labs/internal/dbx"
	"github.com/JasonCodez/kryptyk-labs/internal/obs"
)

// Service runs the submission protocol: shape check, oracle comparison, and
// the single transaction that records a success, recomputes the count,
// syncs clearance, and writes the audit row. Any failure inside that
// transaction rolls back all of it, so a success is never half-recorded.
type Service struct {
	db     *sql.DB
	oracle *Oracle
	log    *audit.Recorder
}

func NewService(db *sql.DB, oracle *Oracle, log *audit.Recorder) *Service {
	return &Service{db: db, oracle: oracle, log: log}
}

// Status reports whether a user has already completed a mission.
func (s *Service) Status(ctx context.Context, userID, missionID string) (bool, *time.Time, error) {
	c, err := NewPGRepository(s.db).GetSuccess(ctx, userID, missionID)
	if errors.Is(err, ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, &c.CompletedAt, nil
}

// StarterProtocol returns the user's beacon for the orientation stream.
func (s *Service) StarterProtocol(ctx context.Context, userID string) (string, error) {
	u, err := asset.NewPGRepository(s.db).Find(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.oracle.Beacon(u), nil
}

// Initiate001Packet returns the packet to parse. The expected nonce is
// embedded in the packet itself; nothing extra is persisted.
func (s *Service) Initiate001Packet(ctx context.Context, userID string) (*Packet, error) {
	u, err := asset.NewPGRepository(s.db).Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	_, pkt := s.oracle.Initiate001(u)
	return &pkt, nil
}

// Progress is the authoritative mission count plus the clearance computed
// from it.
type Progress struct {
	SuccessfulMissions int
	Level              clearance.Level
	Target             clearance.Target
}

// Progress recomputes the user's clearance from the completion count and
// writes it back, healing any drift in the stored cache.
func (s *Service) Progress(ctx context.Context, userID string) (*Progress, error) {
	count, err := NewPGRepository(s.db).CountSuccessful(ctx, userID)
	if err != nil {
		return nil, err
	}
	lvl := clearance.ForCount(count)
	if err := asset.NewPGRepository(s.db).SyncClearance(ctx, userID, lvl.Label(), lvl.ProgressPct); err != nil {
		return nil, err
	}
	return &Progress{
		SuccessfulMissions: count,
		Level:              lvl,
		Target:             clearance.NextTarget(count),
	}, nil
}

// Outcome is the result of one submission.
type Outcome struct {
	MissionID          string
	Correct            bool
	AlreadyCompleted   bool
	CompletedAt        *time.Time
	SuccessfulMissions int
	Level              clearance.Level
	Target             clearance.Target
	RankedUp           bool
	Message            string // hint on an incorrect or malformed answer
}

// Submit checks an answer against the oracle and, on a first-time match,
// records the completion. Submitting an already-completed mission is
// idempotent: it reports success without consulting the oracle and without
// ranking up again.
func (s *Service) Submit(ctx context.Context, userID, missionID, answer string) (*Outcome, error) {
	def, ok := Lookup(missionID)
	if !ok {
		return nil, ErrUnknownMission
	}
	submitted := strings.TrimSpace(answer)

	repo := NewPGRepository(s.db)
	existing, err := repo.GetSuccess(ctx, userID, missionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		count, err := repo.CountSuccessful(ctx, userID)
		if err != nil {
			return nil, err
		}
		lvl := clearance.ForCount(count)
		if err := asset.NewPGRepository(s.db).SyncClearance(ctx, userID, lvl.Label(), lvl.ProgressPct); err != nil {
			return nil, err
		}
		obs.MissionSubmission(missionID, "already_completed")
		return &Outcome{
			MissionID:          missionID,
			Correct:            true,
			AlreadyCompleted:   true,
			CompletedAt:        &existing.CompletedAt,
			SuccessfulMissions: count,
			Level:              lvl,
			Target:             clearance.NextTarget(count),
		}, nil
	}

	// Shape first. A malformed answer never reaches the oracle and is not
	// worth an audit row.
	if !def.WellFormed(submitted) {
		obs.MissionSubmission(missionID, "malformed")
		return &Outcome{MissionID: missionID, Message: def.ShapeHint}, nil
	}

	u, err := asset.NewPGRepository(s.db).Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	expected, err := s.oracle.Expected(u, missionID)
	if err != nil {
		return nil, err
	}

	if !def.Check(submitted, expected) {
		s.log.Record(ctx, userID, audit.EventMissionAttempt,
			"Mission attempted: "+missionID,
			map[string]any{"mission_id": missionID, "success": false})
		obs.MissionSubmission(missionID, "incorrect")
		return &Outcome{MissionID: missionID, Message: def.RetryHint}, nil
	}

	var (
		count    int
		lvl      clearance.Level
		rankedUp bool
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := NewPGRepository(tx)
		if err := txRepo.Upsert(ctx, userID, missionID, true); err != nil {
			return err
		}
		var err error
		count, err = txRepo.CountSuccessful(ctx, userID)
		if err != nil {
			return err
		}
		lvl = clearance.ForCount(count)

		users := asset.NewPGRepository(tx)
		stored, err := users.Find(ctx, userID)
		if err != nil {
			return err
		}
		rankedUp = clearance.Normalize(stored.ClearanceLevel) != lvl.Tier

		if err := users.SyncClearance(ctx, userID, lvl.Label(), lvl.ProgressPct); err != nil {
			return err
		}
		return s.log.RecordTx(ctx, tx, userID, audit.EventMissionComplete,
			"Mission completed: "+missionID,
			map[string]any{"mission_id": missionID, "success": true})
	})
	if err != nil {
		return nil, err
	}

	obs.MissionSubmission(missionID, "correct")
	if rankedUp {
		obs.RankUp()
	}
	now := time.Now().UTC()
	return &Outcome{
		MissionID:          missionID,
		Correct:            true,
		CompletedAt:        &now,
		SuccessfulMissions: count,
		Level:              lvl,
		Target:             clearance.NextTarget(count),
		RankedUp:           rankedUp,
	}, nil
}
