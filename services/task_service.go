package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gritfulAPI/internal/entry"
	"gritfulAPI/internal/feed"
	"gritfulAPI/internal/logger"
	"gritfulAPI/internal/scoring"
)

type TaskService struct {
	db   *pgxpool.Pool
	feed *FeedService
	log  *logger.Logger
}

func NewTaskService(db *pgxpool.Pool, feed *FeedService, log *logger.Logger) *TaskService {
	return &TaskService{db: db, feed: feed, log: log.With("service", "task")}
}

// completionValue treats a bare "complete" on a yes/no task as a yes.
func completionValue(task scoring.Task, value any) any {
	if value == nil && task.Type == scoring.TypeBoolean {
		return true
	}
	return value
}

func taskFromScope(sc *scope, taskID string) (scoring.Task, error) {
	task, ok := sc.Challenge.Task(taskID)
	if !ok {
		return scoring.Task{}, scoring.ErrUnknownTask
	}
	return task, nil
}

// CompleteTask routes to the periodic or one-time flow by the task's
// frequency. Daily tasks are recorded through daily entries instead.
func (s *TaskService) CompleteTask(ctx context.Context, caller Caller, challengeID uuid.UUID, taskID string, value any) (*entry.TaskStatus, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}
	task, err := taskFromScope(sc, taskID)
	if err != nil {
		return nil, err
	}
	if task.EffectiveFrequency() == scoring.FrequencyOnetime {
		return s.CompleteOnetimeTask(ctx, caller, challengeID, taskID, value)
	}
	return s.CompletePeriodicTask(ctx, caller, challengeID, taskID, value)
}

// CompletePeriodicTask records a weekly or monthly task for the period that
// contains the caller's today. A second completion in the same period is
// rejected.
func (s *TaskService) CompletePeriodicTask(ctx context.Context, caller Caller, challengeID uuid.UUID, taskID string, value any) (*entry.TaskStatus, error) {
	var status *entry.TaskStatus
	var sc *scope

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if sc, err = loadScope(ctx, tx, caller, challengeID); err != nil {
			return err
		}
		task, err := taskFromScope(sc, taskID)
		if err != nil {
			return err
		}
		if !task.IsPeriodic() {
			return scoring.ErrWrongFrequency
		}
		period, err := scoring.GetPeriodForDate(task.EffectiveFrequency(), sc.Today)
		if err != nil {
			return err
		}
		existing, err := loadPeriodicCompletions(ctx, tx, sc.Participant.ID)
		if err != nil {
			return err
		}
		if err := scoring.CheckPeriodicCompletion(sc.window(), task, period, entry.PeriodicRecords(existing)); err != nil {
			return err
		}

		value = completionValue(task, value)
		points := scoring.CalculateMetricPoints(task, value)
		valueJSON, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode value: %w", err)
		}

		var completedAt time.Time
		err = tx.QueryRow(ctx, `
			INSERT INTO periodic_task_completions (id, participant_id, task_id, period_start, period_end, value, points_earned)
			VALUES ($1, $2, $3, $4::date, $5::date, $6, $7)
			ON CONFLICT (participant_id, task_id, period_start) DO NOTHING
			RETURNING completed_at`,
			uuid.New(), sc.Participant.ID, task.ID, period.Start.String(), period.End.String(), valueJSON, points,
		).Scan(&completedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return scoring.ErrDuplicateCompletion
			}
			return fmt.Errorf("failed to save completion: %w", err)
		}

		if _, err := recomputeParticipant(ctx, tx, sc.Participant.ID, sc.Today); err != nil {
			return err
		}
		p := period
		status = &entry.TaskStatus{Task: task, Period: &p, Completed: true, CompletedAt: &completedAt, Points: points}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.feed.postActivitySafe(ctx, challengeID, sc.UserID, feed.ActivityTaskCompleted, map[string]any{
		"task_id": taskID, "task_name": status.Task.Name, "points": status.Points,
	})
	return status, nil
}

// UndoPeriodicTask deletes the completion for the current period.
func (s *TaskService) UndoPeriodicTask(ctx context.Context, caller Caller, challengeID uuid.UUID, taskID string) (*entry.TaskStatus, error) {
	var status *entry.TaskStatus
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		sc, err := loadScope(ctx, tx, caller, challengeID)
		if err != nil {
			return err
		}
		task, err := taskFromScope(sc, taskID)
		if err != nil {
			return err
		}
		if !task.IsPeriodic() {
			return scoring.ErrWrongFrequency
		}
		if !sc.window().EntriesAllowed {
			return scoring.ErrEntriesClosed
		}
		period, err := scoring.GetPeriodForDate(task.EffectiveFrequency(), sc.Today)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			DELETE FROM periodic_task_completions
			WHERE participant_id = $1 AND task_id = $2 AND period_start = $3::date`,
			sc.Participant.ID, task.ID, period.Start.String())
		if err != nil {
			return fmt.Errorf("failed to undo completion: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := recomputeParticipant(ctx, tx, sc.Participant.ID, sc.Today); err != nil {
			return err
		}
		status = &entry.TaskStatus{Task: task, Period: &period}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// CompleteOnetimeTask records a one-time task. It can be completed once
// ever, never after the challenge's effective end and never after its
// deadline.
func (s *TaskService) CompleteOnetimeTask(ctx context.Context, caller Caller, challengeID uuid.UUID, taskID string, value any) (*entry.TaskStatus, error) {
	var status *entry.TaskStatus
	var sc *scope

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		if sc, err = loadScope(ctx, tx, caller, challengeID); err != nil {
			return err
		}
		task, err := taskFromScope(sc, taskID)
		if err != nil {
			return err
		}
		existing, err := loadOnetimeCompletions(ctx, tx, sc.Participant.ID)
		if err != nil {
			return err
		}
		if err := scoring.CheckOnetimeCompletion(sc.window(), task, entry.OnetimeRecords(existing)); err != nil {
			return err
		}

		value = completionValue(task, value)
		points := scoring.CalculateMetricPoints(task, value)
		valueJSON, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode value: %w", err)
		}

		var completedAt time.Time
		err = tx.QueryRow(ctx, `
			INSERT INTO onetime_task_completions (id, participant_id, task_id, value, points_earned)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (participant_id, task_id) DO NOTHING
			RETURNING completed_at`,
			uuid.New(), sc.Participant.ID, task.ID, valueJSON, points,
		).Scan(&completedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return scoring.ErrAlreadyCompleted
			}
			return fmt.Errorf("failed to save completion: %w", err)
		}

		if _, err := recomputeParticipant(ctx, tx, sc.Participant.ID, sc.Today); err != nil {
			return err
		}
		status = &entry.TaskStatus{Task: task, Completed: true, CompletedAt: &completedAt, Points: points}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.feed.postActivitySafe(ctx, challengeID, sc.UserID, feed.ActivityTaskCompleted, map[string]any{
		"task_id": taskID, "task_name": status.Task.Name, "points": status.Points,
	})
	return status, nil
}

// GetTaskStatus reports, for every non-daily task, whether it is done: in the
// current period for periodic tasks, ever for one-time tasks.
func (s *TaskService) GetTaskStatus(ctx context.Context, caller Caller, challengeID uuid.UUID) ([]*entry.TaskStatus, error) {
	sc, err := loadScope(ctx, s.db, caller, challengeID)
	if err != nil {
		return nil, err
	}
	periodic, err := loadPeriodicCompletions(ctx, s.db, sc.Participant.ID)
	if err != nil {
		return nil, err
	}
	onetime, err := loadOnetimeCompletions(ctx, s.db, sc.Participant.ID)
	if err != nil {
		return nil, err
	}
	return BuildTaskStatus(sc.Challenge.Metrics, sc.Today, periodic, onetime), nil
}

// BuildTaskStatus is the pure part of GetTaskStatus.
func BuildTaskStatus(tasks []scoring.Task, today civil.Date, periodic []*entry.PeriodicTaskCompletion, onetime []*entry.OnetimeTaskCompletion) []*entry.TaskStatus {
	out := []*entry.TaskStatus{}
	for _, task := range tasks {
		switch freq := task.EffectiveFrequency(); freq {
		case scoring.FrequencyWeekly, scoring.FrequencyMonthly:
			period, err := scoring.GetPeriodForDate(freq, today)
			if err != nil {
				continue
			}
			st := &entry.TaskStatus{Task: task, Period: &period}
			for _, c := range periodic {
				if c.TaskID == task.ID && c.PeriodStart == period.Start {
					at := c.CompletedAt
					st.Completed, st.CompletedAt, st.Points = true, &at, c.PointsEarned
					break
				}
			}
			out = append(out, st)
		case scoring.FrequencyOnetime:
			st := &entry.TaskStatus{Task: task}
			for _, c := range onetime {
				if c.TaskID == task.ID {
					at := c.CompletedAt
					st.Completed, st.CompletedAt, st.Points = true, &at, c.PointsEarned
					break
				}
			}
			out = append(out, st)
		}
	}
	return out
}
