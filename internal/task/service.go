// Package task はタスクのCRUDと所有権チェックのビジネスロジックを提供する。
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/security"
)

// dueDateLayout は期日のフォーマット。カレンダー日付のみ受け付ける。
const dueDateLayout = "2006-01-02"

// Recorder はタスク操作メトリクスの記録インターフェース。
type Recorder interface {
	RecordTaskOp(op string)
}

// noopRecorder はメトリクス未設定時のRecorder実装。
type noopRecorder struct{}

func (noopRecorder) RecordTaskOp(string) {}

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Title       string
	Description string
	Status      string // 省略時はpending
	DueDate     string // YYYY-MM-DD
}

// UpdateInput はタスク部分更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	DueDate     *string
}

// Service はタスクに関するビジネスロジックを提供する。
// すべての操作はリクエスト元アカウントのIDでスコープされる。
type Service struct {
	taskRepo  repository.TaskRepository
	sanitizer security.TextSanitizerService
	metrics   Recorder
}

// NewService はServiceを生成する。metricsがnilの場合は記録しない。
func NewService(taskRepo repository.TaskRepository, sanitizer security.TextSanitizerService, metrics Recorder) *Service {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &Service{
		taskRepo:  taskRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// ListTasks はアカウントが所有するタスク一覧を返す。
func (s *Service) ListTasks(ctx context.Context, accountID string) ([]*model.Task, error) {
	tasks, err := s.taskRepo.ListByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	s.metrics.RecordTaskOp("list")
	return tasks, nil
}

// GetTask は指定IDのタスクを取得する。
// 不存在と他アカウント所有はどちらもTASK_NOT_FOUNDになる。
func (s *Service) GetTask(ctx context.Context, accountID, taskID string) (*model.Task, error) {
	task, err := s.ownedTask(ctx, accountID, taskID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTaskOp("get")
	return task, nil
}

// CreateTask はタスクを作成する。
// 所有者はリクエスト元アカウントに固定され、以後変更されない。
// statusの省略時はpendingになる。バリデーション失敗時は何も永続化しない。
func (s *Service) CreateTask(ctx context.Context, accountID string, input CreateInput) (*model.Task, error) {
	fields := map[string]string{}

	title := s.sanitizer.Sanitize(input.Title)
	validateTitle(title, true, fields)

	description := s.sanitizer.Sanitize(input.Description)
	validateDescription(description, true, fields)

	status := model.TaskStatusPending
	if input.Status != "" {
		status = model.TaskStatus(input.Status)
		if !status.IsValid() {
			fields["status"] = "pending、in_progress、completed のいずれかを指定してください。"
		}
	}

	dueDate, err := time.Parse(dueDateLayout, input.DueDate)
	if err != nil {
		fields["due_date"] = "YYYY-MM-DD形式の日付を指定してください。"
	}

	if len(fields) > 0 {
		return nil, model.NewTaskValidationError(fields)
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Title:       title,
		Description: description,
		Status:      status,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.metrics.RecordTaskOp("create")
	return task, nil
}

// UpdateTask はタスクを部分更新する。
// リクエストに含まれるフィールドのみを適用し、変更対象のみ再バリデーションする。
// 取得はGetTaskと同じ所有権ルールに従う。
func (s *Service) UpdateTask(ctx context.Context, accountID, taskID string, input UpdateInput) (*model.Task, error) {
	task, err := s.ownedTask(ctx, accountID, taskID)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{}

	if input.Title != nil {
		title := s.sanitizer.Sanitize(*input.Title)
		validateTitle(title, true, fields)
		task.Title = title
	}

	if input.Description != nil {
		description := s.sanitizer.Sanitize(*input.Description)
		validateDescription(description, false, fields)
		task.Description = description
	}

	if input.Status != nil {
		status := model.TaskStatus(*input.Status)
		if !status.IsValid() {
			fields["status"] = "pending、in_progress、completed のいずれかを指定してください。"
		}
		task.Status = status
	}

	if input.DueDate != nil {
		dueDate, err := time.Parse(dueDateLayout, *input.DueDate)
		if err != nil {
			fields["due_date"] = "YYYY-MM-DD形式の日付を指定してください。"
		}
		task.DueDate = dueDate
	}

	if len(fields) > 0 {
		return nil, model.NewTaskValidationError(fields)
	}

	task.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.metrics.RecordTaskOp("update")
	return task, nil
}

// DeleteTask はタスクを削除し、削除前の表現を返す。
// 取得はGetTaskと同じ所有権ルールに従う。
func (s *Service) DeleteTask(ctx context.Context, accountID, taskID string) (*model.Task, error) {
	task, err := s.ownedTask(ctx, accountID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.DeleteByID(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	s.metrics.RecordTaskOp("delete")
	return task, nil
}

// ownedTask はタスクを取得し、リクエスト元アカウントの所有を検証する。
// 不存在と所有者不一致を区別せずTASK_NOT_FOUNDを返す（存在漏洩の防止）。
// 全CRUD操作が共有する唯一の所有権フィルタリング実装。
func (s *Service) ownedTask(ctx context.Context, accountID, taskID string) (*model.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, model.NewInvalidTaskIDError(taskID)
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil || task.AccountID != accountID {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return task, nil
}

// validateTitle はタイトルを検証し、問題があればfieldsに理由を追加する。
func validateTitle(title string, required bool, fields map[string]string) {
	if title == "" {
		if required {
			fields["title"] = "タイトルは必須です。"
		}
		return
	}
	if len([]rune(title)) > model.TaskTitleMaxLen {
		fields["title"] = fmt.Sprintf("タイトルは%d文字以内で入力してください。", model.TaskTitleMaxLen)
	}
}

// validateDescription は説明文を検証し、問題があればfieldsに理由を追加する。
func validateDescription(description string, required bool, fields map[string]string) {
	if description == "" {
		if required {
			fields["description"] = "説明は必須です。"
		}
		return
	}
	if len([]rune(description)) > model.TaskDescriptionMaxLen {
		fields["description"] = fmt.Sprintf("説明は%d文字以内で入力してください。", model.TaskDescriptionMaxLen)
	}
}
